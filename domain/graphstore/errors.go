package graphstore

import (
	"errors"
	"net/http"

	"github.com/emergent-company/typegraph/pkg/apperror"
)

// Store errors. Callers match them with errors.Is; copies made with the
// apperror With* helpers carry the offending identifier in Details.
var (
	ErrBaseURIAlreadyExists      = apperror.New(http.StatusConflict, "base_uri_already_exists", "Base URI already exists")
	ErrBaseURIDoesNotExist       = apperror.New(http.StatusNotFound, "base_uri_does_not_exist", "Base URI does not exist")
	ErrVersionedURIAlreadyExists = apperror.New(http.StatusConflict, "versioned_uri_already_exists", "Versioned URI already exists")
	ErrEntityDoesNotExist        = apperror.New(http.StatusNotFound, "entity_does_not_exist", "Entity does not exist")
	ErrLinkAlreadyExists         = apperror.New(http.StatusConflict, "link_already_exists", "Link already exists")

	ErrQuery     = apperror.New(http.StatusInternalServerError, "query_error", "Could not read from the store")
	ErrInsertion = apperror.New(http.StatusInternalServerError, "insertion_error", "Could not insert into the store")
	ErrUpdate    = apperror.New(http.StatusInternalServerError, "update_error", "Could not update the store")
	// ErrLinkRemoval is returned when no live link matched the removal.
	ErrLinkRemoval = apperror.New(http.StatusNotFound, "link_removal_error", "Could not remove link")

	// errLinkRemovalFailed matches ErrLinkRemoval but reports a database
	// failure rather than a missing link.
	errLinkRemovalFailed = apperror.New(http.StatusInternalServerError, ErrLinkRemoval.Code, ErrLinkRemoval.Message)
)

// Detail keys attached to store errors.
const (
	detailBaseURI      = "base_uri"
	detailVersionedURI = "versioned_uri"
	detailEntityID     = "entity_id"
	detailAccountID    = "account_id"
)

// writeError classifies the result of a write transaction. Store errors pass
// through; anything else, such as a failed begin or commit, becomes kind
// with details attached.
func writeError(err error, kind *apperror.Error, details map[string]any) error {
	var appErr *apperror.Error
	if err == nil || errors.As(err, &appErr) {
		return err
	}
	return kind.WithInternal(err).WithDetails(details)
}
