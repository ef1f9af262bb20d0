package graphstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a principal that can own, create or update records.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	AccountID uuid.UUID `bun:"account_id,pk,type:uuid"`
}

// BaseURI reserves the base URI of a type family.
type BaseURI struct {
	bun.BaseModel `bun:"table:base_uris,alias:bu"`

	BaseURI string `bun:"base_uri,pk"`
}

// VersionID is the internal join key minted for every versioned URI.
type VersionID struct {
	bun.BaseModel `bun:"table:version_ids,alias:vi"`

	VersionID uuid.UUID `bun:"version_id,pk,type:uuid"`
}

// TypeID binds a (base URI, version) pair to its version id.
type TypeID struct {
	bun.BaseModel `bun:"table:type_ids,alias:ti"`

	BaseURI   string    `bun:"base_uri,pk"`
	Version   int64     `bun:"version,pk"`
	VersionID uuid.UUID `bun:"version_id,notnull,type:uuid"`
}

// OntologyType is a payload row of one of the four type tables. The table is
// chosen per query with ModelTableExpr.
type OntologyType struct {
	bun.BaseModel `bun:"alias:ot"`

	VersionID   uuid.UUID       `bun:"version_id,pk,type:uuid"`
	Schema      json.RawMessage `bun:"schema,type:jsonb,notnull"`
	OwnedByID   uuid.UUID       `bun:"owned_by_id,notnull,type:uuid"`
	CreatedByID uuid.UUID       `bun:"created_by_id,notnull,type:uuid"`
	UpdatedByID uuid.UUID       `bun:"updated_by_id,notnull,type:uuid"`
}

// EntityIDRow reserves an entity id.
type EntityIDRow struct {
	bun.BaseModel `bun:"table:entity_ids,alias:ei"`

	EntityID uuid.UUID `bun:"entity_id,pk,type:uuid"`
}

// EntityRow is one version of an entity.
type EntityRow struct {
	bun.BaseModel `bun:"table:entities,alias:e"`

	EntityID            uuid.UUID       `bun:"entity_id,pk,type:uuid"`
	Version             time.Time       `bun:"version,pk"`
	EntityTypeVersionID uuid.UUID       `bun:"entity_type_version_id,notnull,type:uuid"`
	Properties          json.RawMessage `bun:"properties,type:jsonb,notnull"`
	OwnedByID           uuid.UUID       `bun:"owned_by_id,notnull,type:uuid"`
	CreatedByID         uuid.UUID       `bun:"created_by_id,notnull,type:uuid"`
	UpdatedByID         uuid.UUID       `bun:"updated_by_id,notnull,type:uuid"`
}

// LinkRow is a live link.
type LinkRow struct {
	bun.BaseModel `bun:"table:links,alias:l"`

	SourceEntityID    uuid.UUID `bun:"source_entity_id,pk,type:uuid"`
	TargetEntityID    uuid.UUID `bun:"target_entity_id,pk,type:uuid"`
	LinkTypeVersionID uuid.UUID `bun:"link_type_version_id,pk,type:uuid"`
	LinkIndex         *int32    `bun:"link_index"`
	OwnedByID         uuid.UUID `bun:"owned_by_id,notnull,type:uuid"`
	CreatedByID       uuid.UUID `bun:"created_by_id,notnull,type:uuid"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}

// LinkHistory is a removed link with its removal provenance.
type LinkHistory struct {
	bun.BaseModel `bun:"table:link_histories,alias:lh"`

	SourceEntityID    uuid.UUID `bun:"source_entity_id,type:uuid"`
	TargetEntityID    uuid.UUID `bun:"target_entity_id,type:uuid"`
	LinkTypeVersionID uuid.UUID `bun:"link_type_version_id,type:uuid"`
	LinkIndex         *int32    `bun:"link_index"`
	OwnedByID         uuid.UUID `bun:"owned_by_id,type:uuid"`
	CreatedByID       uuid.UUID `bun:"created_by_id,type:uuid"`
	CreatedAt         time.Time `bun:"created_at"`
	RemovedByID       uuid.UUID `bun:"removed_by_id,type:uuid"`
	RemovedAt         time.Time `bun:"removed_at"`
}

// linkWithType is a live link joined with the versioned URI of its type.
type linkWithType struct {
	SourceEntityID uuid.UUID `bun:"source_entity_id"`
	TargetEntityID uuid.UUID `bun:"target_entity_id"`
	LinkIndex      *int32    `bun:"link_index"`
	OwnedByID      uuid.UUID `bun:"owned_by_id"`
	CreatedByID    uuid.UUID `bun:"created_by_id"`
	BaseURI        string    `bun:"base_uri"`
	Version        int64     `bun:"version"`
}
