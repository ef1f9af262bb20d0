package knowledge

import (
	"context"
	"fmt"

	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/query"
)

// Link is a directed, typed relation between two entities. Links are not
// versioned; at most one live link exists per source, target and link type.
type Link struct {
	SourceEntityID EntityID              `json:"sourceEntityId"`
	TargetEntityID EntityID              `json:"targetEntityId"`
	LinkTypeID     ontology.VersionedURI `json:"linkTypeId"`
	// Index orders links of the same type from one source. Callers manage it.
	Index *int32 `json:"index,omitempty"`
}

// LinkID addresses a link by the triple that makes it unique.
type LinkID struct {
	SourceEntityID EntityID              `json:"sourceEntityId"`
	TargetEntityID EntityID              `json:"targetEntityId"`
	LinkTypeID     ontology.VersionedURI `json:"linkTypeId"`
}

func (id LinkID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.SourceEntityID, id.LinkTypeID, id.TargetEntityID)
}

// ID is the triple identifying the link.
func (l Link) ID() LinkID {
	return LinkID{SourceEntityID: l.SourceEntityID, TargetEntityID: l.TargetEntityID, LinkTypeID: l.LinkTypeID}
}

type PersistedLinkMetadata struct {
	OwnedByID   ontology.AccountID `json:"ownedById"`
	CreatedByID ontology.AccountID `json:"createdById"`
}

// PersistedLink is a live link with its provenance.
type PersistedLink struct {
	Inner    Link                  `json:"inner"`
	Metadata PersistedLinkMetadata `json:"metadata"`
}

func NewPersistedLink(link Link, ownedBy, createdBy ontology.AccountID) PersistedLink {
	return PersistedLink{
		Inner:    link,
		Metadata: PersistedLinkMetadata{OwnedByID: ownedBy, CreatedByID: createdBy},
	}
}

// Key identifies the link inside a dependency set.
func (l PersistedLink) Key() LinkID { return l.Inner.ID() }

func (l PersistedLink) Resolve(ctx context.Context, path []query.PathSegment, reader query.RecordReader) (query.Literal, error) {
	if len(path) == 0 {
		return query.StringLiteral(l.Key().String()), nil
	}

	field, rest := path[0], path[1:]
	switch Field(field) {
	case FieldSource:
		return query.ResolveRelation(ctx, rest, reader, query.KindEntity, l.Inner.SourceEntityID.String())
	case FieldTarget:
		return query.ResolveRelation(ctx, rest, reader, query.KindEntity, l.Inner.TargetEntityID.String())
	case FieldType:
		return query.ResolveRelation(ctx, rest, reader, query.KindLinkType, l.Inner.LinkTypeID.String())
	}

	var value query.Literal
	switch Field(field) {
	case FieldOwnedByID:
		value = query.StringLiteral(l.Metadata.OwnedByID.String())
	case FieldCreatedByID:
		value = query.StringLiteral(l.Metadata.CreatedByID.String())
	case FieldIndex:
		if l.Inner.Index != nil {
			value = query.NumberLiteral(float64(*l.Inner.Index))
		} else {
			value = query.NullLiteral()
		}
	default:
		return query.Literal{}, fmt.Errorf("%w: link has no field `%s`", query.ErrUnknownField, field)
	}
	if len(rest) > 0 {
		return query.Literal{}, fmt.Errorf("%w: `%s` has no fields", query.ErrUnknownField, field)
	}
	return value, nil
}
