// Package knowledge models the data instances of the graph: entities, which
// are versioned property documents typed by an entity type, and the links
// between them.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/query"
)

// EntityID identifies an entity across all of its versions.
type EntityID = uuid.UUID

// Entity is the property document of an entity, keyed by property type base URI.
type Entity map[string]any

// PersistedEntityIdentifier identifies one version of an entity.
type PersistedEntityIdentifier struct {
	EntityID  EntityID           `json:"entityId"`
	Version   time.Time          `json:"version"`
	OwnedByID ontology.AccountID `json:"ownedById"`
}

type PersistedEntityMetadata struct {
	Identifier   PersistedEntityIdentifier `json:"identifier"`
	EntityTypeID ontology.VersionedURI     `json:"entityTypeId"`
	CreatedByID  ontology.AccountID        `json:"createdById"`
	UpdatedByID  ontology.AccountID        `json:"updatedById"`
}

// PersistedEntity is one stored version of an entity.
type PersistedEntity struct {
	Inner    Entity                  `json:"inner"`
	Metadata PersistedEntityMetadata `json:"metadata"`
	IsLatest bool                    `json:"-"`
}

// ID is the id of the entity.
func (e PersistedEntity) ID() EntityID { return e.Metadata.Identifier.EntityID }

func (e PersistedEntity) Resolve(ctx context.Context, path []query.PathSegment, reader query.RecordReader) (query.Literal, error) {
	if len(path) == 0 {
		return query.StringLiteral(e.ID().String()), nil
	}

	field, rest := path[0], path[1:]
	switch Field(field) {
	case FieldType:
		return query.ResolveRelation(ctx, rest, reader, query.KindEntityType, e.Metadata.EntityTypeID.String())
	case FieldProperties:
		return query.ResolveJSON(map[string]any(e.Inner), rest)
	}

	var value query.Literal
	switch Field(field) {
	case FieldID:
		value = query.StringLiteral(e.ID().String())
	case FieldVersion:
		value = query.TimestampLiteral(e.Metadata.Identifier.Version, e.IsLatest)
	case FieldOwnedByID:
		value = query.StringLiteral(e.Metadata.Identifier.OwnedByID.String())
	case FieldCreatedByID:
		value = query.StringLiteral(e.Metadata.CreatedByID.String())
	case FieldUpdatedByID:
		value = query.StringLiteral(e.Metadata.UpdatedByID.String())
	default:
		return query.Literal{}, fmt.Errorf("%w: entity has no field `%s`", query.ErrUnknownField, field)
	}
	if len(rest) > 0 {
		return query.Literal{}, fmt.Errorf("%w: `%s` has no fields", query.ErrUnknownField, field)
	}
	return value, nil
}
