package graphstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/query"
)

func (s *Store) readDataType(ctx context.Context, uri ontology.VersionedURI) (ontology.DataTypeRecord, error) {
	return readOntologyType(ctx, s, dataTypes, uri)
}

func (s *Store) readPropertyType(ctx context.Context, uri ontology.VersionedURI) (ontology.PropertyTypeRecord, error) {
	return readOntologyType(ctx, s, propertyTypes, uri)
}

func (s *Store) readLinkType(ctx context.Context, uri ontology.VersionedURI) (ontology.LinkTypeRecord, error) {
	return readOntologyType(ctx, s, linkTypes, uri)
}

func (s *Store) readEntityType(ctx context.Context, uri ontology.VersionedURI) (ontology.EntityTypeRecord, error) {
	return readOntologyType(ctx, s, entityTypes, uri)
}

// ReadRecord loads the records the query interpreter follows relations into.
func (s *Store) ReadRecord(ctx context.Context, kind query.RecordKind, id string) (query.Resolvable, error) {
	if kind == query.KindEntity {
		entityID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q: %w", id, err)
		}
		return s.readLatestEntity(ctx, entityID)
	}

	uri, err := ontology.ParseVersionedURI(id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case query.KindDataType:
		return s.readDataType(ctx, uri)
	case query.KindPropertyType:
		return s.readPropertyType(ctx, uri)
	case query.KindLinkType:
		return s.readLinkType(ctx, uri)
	case query.KindEntityType:
		return s.readEntityType(ctx, uri)
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

var (
	_ query.RecordReader = (*Store)(nil)
	_ dependencyReader   = (*Store)(nil)
	_ query.Resolvable   = knowledge.PersistedLink{}
)
