package ontology

import "github.com/google/uuid"

// AccountID identifies a principal that owns, creates or updates records.
type AccountID = uuid.UUID

// ParseAccountID parses the text form of an account id.
func ParseAccountID(s string) (AccountID, error) {
	return uuid.Parse(s)
}
