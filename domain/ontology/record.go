package ontology

import (
	"context"
	"fmt"

	"github.com/emergent-company/typegraph/pkg/query"
)

// Identifier identifies a persisted ontology type version.
type Identifier struct {
	URI       VersionedURI `json:"uri"`
	OwnedByID AccountID    `json:"ownedById"`
}

// Metadata is the provenance of a persisted ontology type version.
type Metadata struct {
	Identifier  Identifier `json:"identifier"`
	CreatedByID AccountID  `json:"createdById"`
	UpdatedByID AccountID  `json:"updatedById"`
}

// Record is a persisted type document with its provenance.
type Record[T Type] struct {
	Inner    T        `json:"inner"`
	Metadata Metadata `json:"metadata"`
	// IsLatest is set when this is the latest version of its base URI.
	IsLatest bool `json:"-"`
}

// NewRecord wraps a document with its provenance.
func NewRecord[T Type](inner T, ownedBy, createdBy, updatedBy AccountID, isLatest bool) Record[T] {
	return Record[T]{
		Inner: inner,
		Metadata: Metadata{
			Identifier:  Identifier{URI: inner.ID(), OwnedByID: ownedBy},
			CreatedByID: createdBy,
			UpdatedByID: updatedBy,
		},
		IsLatest: isLatest,
	}
}

// URI is the versioned URI of the record.
func (r Record[T]) URI() VersionedURI { return r.Metadata.Identifier.URI }

type (
	DataTypeRecord     = Record[*DataType]
	PropertyTypeRecord = Record[*PropertyType]
	LinkTypeRecord     = Record[*LinkType]
	EntityTypeRecord   = Record[*EntityType]
)

// Resolve evaluates a path against the record for the query interpreter.
// Unknown fields fall back to the raw document.
func (r Record[T]) Resolve(ctx context.Context, path []query.PathSegment, reader query.RecordReader) (query.Literal, error) {
	if len(path) == 0 {
		return query.StringLiteral(r.URI().String()), nil
	}

	field, rest := path[0], path[1:]
	var value query.Literal
	switch field {
	case "ownedById":
		value = query.StringLiteral(r.Metadata.Identifier.OwnedByID.String())
	case "createdById":
		value = query.StringLiteral(r.Metadata.CreatedByID.String())
	case "updatedById":
		value = query.StringLiteral(r.Metadata.UpdatedByID.String())
	case "baseUri":
		value = query.StringLiteral(r.URI().BaseURI.String())
	case "versionedUri":
		value = query.StringLiteral(r.URI().String())
	case "version":
		value = query.VersionLiteral(r.URI().Version, r.IsLatest)
	case "title":
		value = query.StringLiteral(r.Inner.Title())
	case "description":
		if d := r.Inner.Description(); d != nil {
			value = query.StringLiteral(*d)
		} else {
			value = query.NullLiteral()
		}
	default:
		specific, ok, err := r.Inner.ResolveField(ctx, field, rest, reader)
		if err != nil {
			return query.Literal{}, err
		}
		if ok {
			return specific, nil
		}
		doc, err := documentOf(r.Inner)
		if err != nil {
			return query.Literal{}, err
		}
		return query.ResolveJSON(doc, path)
	}

	if len(rest) > 0 {
		return query.Literal{}, fmt.Errorf("%w: `%s` has no fields", query.ErrUnknownField, field)
	}
	return value, nil
}

type documented interface {
	Document() map[string]any
}

func documentOf(t Type) (map[string]any, error) {
	d, ok := t.(documented)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no document", query.ErrUnknownField, t.Kind())
	}
	return d.Document(), nil
}
