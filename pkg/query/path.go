// Package query holds the store-agnostic query algebra: token paths into typed
// records, the filter tree built from them, the literal values records resolve
// to, and an interpreter that evaluates expressions against records in memory.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PathSegment is one token of a query path.
type PathSegment string

const (
	// Wildcard selects the element of a relation.
	Wildcard PathSegment = "*"
	// DeepWildcard maps the remaining path over every element of a collection.
	DeepWildcard PathSegment = "**"
)

// Path is implemented by every typed query path.
type Path interface {
	Segments() []PathSegment
}

// Segments builds a segment list from plain tokens.
func Segments(tokens ...string) []PathSegment {
	segments := make([]PathSegment, len(tokens))
	for i, t := range tokens {
		segments[i] = PathSegment(t)
	}
	return segments
}

// Tokens renders segments back to plain strings.
func Tokens(segments []PathSegment) []string {
	tokens := make([]string, len(segments))
	for i, s := range segments {
		tokens[i] = string(s)
	}
	return tokens
}

// PathErrorKind classifies path parse failures.
type PathErrorKind int

const (
	// InvalidLength reports too few or too many tokens.
	InvalidLength PathErrorKind = iota
	// UnknownVariant reports a token that is not part of the grammar.
	UnknownVariant
	// InvalidValue reports a token in a fixed position holding the wrong value.
	InvalidValue
)

// PathError describes why a token sequence is not a valid path.
type PathError struct {
	Kind     PathErrorKind
	Length   int
	Token    string
	Expected string
}

func (e *PathError) Error() string {
	switch e.Kind {
	case UnknownVariant:
		return fmt.Sprintf("unknown variant `%s`, expected %s", e.Token, e.Expected)
	case InvalidValue:
		return fmt.Sprintf("invalid value: string %q, expected %s", e.Token, e.Expected)
	default:
		return fmt.Sprintf("invalid length %d, expected %s", e.Length, e.Expected)
	}
}

// ExpectingOneOf formats the set of accepted tokens for error messages.
func ExpectingOneOf(tokens ...string) string {
	switch len(tokens) {
	case 0:
		return "there are no variants"
	case 1:
		return fmt.Sprintf("`%s`", tokens[0])
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = "`" + t + "`"
	}
	return "one of " + strings.Join(quoted, ", ")
}

const expectingWildcard = "a wildcard (*)"

// PathVisitor walks a token sequence positionally. Nested grammars share the
// visitor so error positions count from the start of the whole path.
type PathVisitor struct {
	tokens   []string
	position int
}

// NewPathVisitor creates a visitor over tokens.
func NewPathVisitor(tokens []string) *PathVisitor {
	return &PathVisitor{tokens: tokens}
}

// Position is the number of tokens consumed so far.
func (v *PathVisitor) Position() int {
	return v.position
}

// Next consumes one token. expecting describes what was wanted when the
// sequence is already exhausted.
func (v *PathVisitor) Next(expecting string) (string, error) {
	if v.position >= len(v.tokens) {
		return "", &PathError{Kind: InvalidLength, Length: v.position, Expected: expecting}
	}
	token := v.tokens[v.position]
	v.position++
	return token, nil
}

// Variant consumes one token that must be one of allowed.
func (v *PathVisitor) Variant(allowed []string) (string, error) {
	expecting := ExpectingOneOf(allowed...)
	token, err := v.Next(expecting)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if a == token {
			return token, nil
		}
	}
	return "", &PathError{Kind: UnknownVariant, Token: token, Expected: expecting}
}

// Wildcard consumes the relation selector, which must be "*".
func (v *PathVisitor) Wildcard() error {
	token, err := v.Next(expectingWildcard)
	if err != nil {
		return err
	}
	if token != string(Wildcard) {
		return &PathError{Kind: InvalidValue, Token: token, Expected: expectingWildcard}
	}
	return nil
}

// End fails when tokens remain after the grammar completed.
func (v *PathVisitor) End() error {
	if v.position < len(v.tokens) {
		return &PathError{Kind: InvalidLength, Length: len(v.tokens), Expected: elementsInSequence(v.position)}
	}
	return nil
}

func elementsInSequence(n int) string {
	if n == 1 {
		return "1 element in sequence"
	}
	return fmt.Sprintf("%d elements in sequence", n)
}

// ParsePath runs visit over tokens and requires that every token is consumed.
func ParsePath[P any](tokens []string, visit func(*PathVisitor) (P, error)) (P, error) {
	v := NewPathVisitor(tokens)
	path, err := visit(v)
	if err != nil {
		var zero P
		return zero, err
	}
	if err := v.End(); err != nil {
		var zero P
		return zero, err
	}
	return path, nil
}

// UnmarshalPath decodes a JSON token array and parses it with visit.
func UnmarshalPath[P any](data []byte, visit func(*PathVisitor) (P, error)) (P, error) {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		var zero P
		return zero, fmt.Errorf("path must be an array of strings: %w", err)
	}
	return ParsePath(tokens, visit)
}
