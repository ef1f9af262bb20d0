package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/logger"
	"github.com/emergent-company/typegraph/pkg/pgquery"
	"github.com/emergent-company/typegraph/pkg/query"
	"github.com/emergent-company/typegraph/pkg/tracing"
)

// CreateEntity stores the first version of a new entity of the given type.
func (s *Store) CreateEntity(ctx context.Context, entity knowledge.Entity, entityTypeID ontology.VersionedURI, ownedBy, createdBy ontology.AccountID) (knowledge.PersistedEntityMetadata, error) {
	ctx, span := tracing.Start(ctx, "graphstore.create_entity",
		attribute.String("typegraph.entity_type_id", entityTypeID.String()),
	)
	defer span.End()

	properties, err := json.Marshal(entity)
	if err != nil {
		return knowledge.PersistedEntityMetadata{}, apperror.NewBadRequest("entity properties must be a JSON object")
	}

	row := &EntityRow{
		EntityID:    uuid.New(),
		Properties:  properties,
		OwnedByID:   ownedBy,
		CreatedByID: createdBy,
		UpdatedByID: createdBy,
	}
	err = database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		if _, err := tx.NewInsert().Model(&EntityIDRow{EntityID: row.EntityID}).Exec(ctx); err != nil {
			return ErrInsertion.WithInternal(err).WithDetail(detailEntityID, row.EntityID.String())
		}
		return insertEntityVersion(ctx, tx, row, entityTypeID)
	})
	err = writeError(err, ErrInsertion, map[string]any{detailEntityID: row.EntityID.String()})
	observeWrite("create_entity", err)
	if err != nil {
		tracing.RecordError(span, err)
		return knowledge.PersistedEntityMetadata{}, err
	}

	s.log.Info("entity created",
		slog.String("entity_id", row.EntityID.String()),
		slog.String("entity_type_id", entityTypeID.String()),
	)
	return entityMetadata(row, entityTypeID), nil
}

// UpdateEntity appends a new version to an existing entity. Owner and
// creator are carried over from the latest version.
func (s *Store) UpdateEntity(ctx context.Context, id knowledge.EntityID, entity knowledge.Entity, entityTypeID ontology.VersionedURI, updatedBy ontology.AccountID) (knowledge.PersistedEntityMetadata, error) {
	ctx, span := tracing.Start(ctx, "graphstore.update_entity",
		attribute.String("typegraph.entity_id", id.String()),
	)
	defer span.End()

	properties, err := json.Marshal(entity)
	if err != nil {
		return knowledge.PersistedEntityMetadata{}, apperror.NewBadRequest("entity properties must be a JSON object")
	}

	var row *EntityRow
	err = database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		latest := new(EntityRow)
		err := tx.NewSelect().
			Model(latest).
			Where("entity_id = ?", id).
			OrderExpr("version DESC").
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityDoesNotExist.WithDetail(detailEntityID, id.String())
		}
		if err != nil {
			return ErrUpdate.WithInternal(err).WithDetail(detailEntityID, id.String())
		}

		row = &EntityRow{
			EntityID:    id,
			Properties:  properties,
			OwnedByID:   latest.OwnedByID,
			CreatedByID: latest.CreatedByID,
			UpdatedByID: updatedBy,
		}
		if err := insertEntityVersion(ctx, tx, row, entityTypeID); err != nil {
			if errors.Is(err, ErrInsertion) {
				return ErrUpdate.WithInternal(err).WithDetail(detailEntityID, id.String())
			}
			return err
		}
		return nil
	})
	err = writeError(err, ErrUpdate, map[string]any{detailEntityID: id.String()})
	observeWrite("update_entity", err)
	if err != nil {
		tracing.RecordError(span, err)
		return knowledge.PersistedEntityMetadata{}, err
	}

	s.log.Info("entity updated",
		slog.String("entity_id", id.String()),
		slog.Time("version", row.Version),
	)
	return entityMetadata(row, entityTypeID), nil
}

// insertEntityVersion resolves the entity type and inserts row, stamping it
// with the database clock.
func insertEntityVersion(ctx context.Context, tx bun.IDB, row *EntityRow, entityTypeID ontology.VersionedURI) error {
	versionID, err := versionIDByURI(ctx, tx, entityTypeID)
	if err != nil {
		return ErrInsertion.WithInternal(err).
			WithDetail(detailEntityID, row.EntityID.String()).
			WithDetail(detailVersionedURI, entityTypeID.String())
	}
	row.EntityTypeVersionID = versionID

	_, err = tx.NewInsert().
		Model(row).
		Value("version", "clock_timestamp()").
		Returning("version").
		Exec(ctx)
	if err != nil {
		return ErrInsertion.WithInternal(err).WithDetail(detailEntityID, row.EntityID.String())
	}
	return nil
}

func entityMetadata(row *EntityRow, entityTypeID ontology.VersionedURI) knowledge.PersistedEntityMetadata {
	return knowledge.PersistedEntityMetadata{
		Identifier: knowledge.PersistedEntityIdentifier{
			EntityID:  row.EntityID,
			Version:   row.Version,
			OwnedByID: row.OwnedByID,
		},
		EntityTypeID: entityTypeID,
		CreatedByID:  row.CreatedByID,
		UpdatedByID:  row.UpdatedByID,
	}
}

// InsertEntities bulk loads entities of one type with COPY. Every entity gets
// a fresh id and all of them share one version timestamp.
func (s *Store) InsertEntities(ctx context.Context, entities []knowledge.Entity, entityTypeID ontology.VersionedURI, ownedBy ontology.AccountID) ([]knowledge.EntityID, error) {
	ctx, span := tracing.Start(ctx, "graphstore.insert_entities",
		attribute.String("typegraph.entity_type_id", entityTypeID.String()),
		attribute.Int("typegraph.entities", len(entities)),
	)
	defer span.End()

	ids, err := s.copyEntities(ctx, entities, entityTypeID, ownedBy)
	observeWrite("insert_entities", err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	s.log.Info("entities inserted",
		slog.Int("count", len(ids)),
		slog.String("entity_type_id", entityTypeID.String()),
	)
	return ids, nil
}

func (s *Store) copyEntities(ctx context.Context, entities []knowledge.Entity, entityTypeID ontology.VersionedURI, ownedBy ontology.AccountID) ([]knowledge.EntityID, error) {
	insertion := func(err error) error {
		return ErrInsertion.WithInternal(err).WithDetail(detailVersionedURI, entityTypeID.String())
	}

	ids := make([]knowledge.EntityID, len(entities))
	properties := make([][]byte, len(entities))
	for i, entity := range entities {
		ids[i] = uuid.New()
		data, err := json.Marshal(entity)
		if err != nil {
			return nil, insertion(fmt.Errorf("encode entity %d: %w", i, err))
		}
		properties[i] = data
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, insertion(err)
	}
	defer tx.Rollback(ctx)

	var (
		versionID uuid.UUID
		version   time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT version_id, clock_timestamp() FROM type_ids WHERE base_uri = $1 AND version = $2`,
		entityTypeID.BaseURI.String(), int64(entityTypeID.Version),
	).Scan(&versionID, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, insertion(fmt.Errorf("versioned URI %s does not exist", entityTypeID))
	}
	if err != nil {
		return nil, insertion(err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"entity_ids"}, []string{"entity_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{ids[i]}, nil
		}))
	if err != nil {
		return nil, insertion(err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"entities"},
		[]string{"entity_id", "version", "entity_type_version_id", "properties", "owned_by_id", "created_by_id", "updated_by_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{ids[i], version, versionID, properties[i], ownedBy, ownedBy, ownedBy}, nil
		}))
	if err != nil {
		return nil, insertion(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, insertion(err)
	}
	return ids, nil
}

var (
	entityIDPath      = knowledge.EntityPath{Field: knowledge.FieldID}
	entityVersionPath = knowledge.EntityPath{Field: knowledge.FieldVersion}
	entityTypeURIPath = knowledge.EntityPath{
		Field:      knowledge.FieldType,
		EntityType: &ontology.EntityTypePath{Field: ontology.FieldVersionedURI},
	}
)

// readEntities runs a compiled filter over every entity version. A zero
// filter matches all of them.
func (s *Store) readEntities(ctx context.Context, filter query.Filter[knowledge.EntityPath]) ([]knowledge.PersistedEntity, error) {
	c := pgquery.NewCompiler[knowledge.EntityPath](entityRecord{})
	c.SelectPath(entityIDPath)
	c.Select(c.BaseColumn("properties"), "")
	version := c.Column(entityVersionPath)
	c.Select(version, "")
	c.Select(version.LatestVersion(), "")
	c.SelectPath(entityTypeURIPath)
	c.Select(c.BaseColumn("owned_by_id"), "")
	c.Select(c.BaseColumn("created_by_id"), "")
	c.Select(c.BaseColumn("updated_by_id"), "")
	if filter.Op != "" {
		c.Where(filter)
	}
	statement, args := c.Compile()

	s.log.Debug("compiled entity query",
		slog.String("sql", statement),
		slog.Int("parameters", len(args)),
	)

	rows, err := s.pool.Query(ctx, statement, args...)
	if err != nil {
		return nil, ErrQuery.WithInternal(err)
	}
	defer rows.Close()

	var entities []knowledge.PersistedEntity
	for rows.Next() {
		var (
			id                            uuid.UUID
			properties                    []byte
			version, latest               time.Time
			entityType                    string
			ownedBy, createdBy, updatedBy uuid.UUID
		)
		if err := rows.Scan(&id, &properties, &version, &latest, &entityType, &ownedBy, &createdBy, &updatedBy); err != nil {
			return nil, ErrQuery.WithInternal(err)
		}

		var inner knowledge.Entity
		if err := json.Unmarshal(properties, &inner); err != nil {
			return nil, ErrQuery.WithInternal(err).WithDetail(detailEntityID, id.String())
		}
		entityTypeID, err := ontology.ParseVersionedURI(entityType)
		if err != nil {
			return nil, ErrQuery.WithInternal(err).WithDetail(detailEntityID, id.String())
		}

		entities = append(entities, knowledge.PersistedEntity{
			Inner: inner,
			Metadata: knowledge.PersistedEntityMetadata{
				Identifier: knowledge.PersistedEntityIdentifier{
					EntityID:  id,
					Version:   version,
					OwnedByID: ownedBy,
				},
				EntityTypeID: entityTypeID,
				CreatedByID:  createdBy,
				UpdatedByID:  updatedBy,
			},
			IsLatest: version.Equal(latest),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQuery.WithInternal(err)
	}
	return entities, nil
}

func (s *Store) readLatestEntity(ctx context.Context, id knowledge.EntityID) (knowledge.PersistedEntity, error) {
	entities, err := s.readEntities(ctx, query.All(
		query.Equal(query.PathOperand(entityIDPath), query.ParameterOperand[knowledge.EntityPath](query.Text(id.String()))),
		query.Equal(query.PathOperand(entityVersionPath), query.ParameterOperand[knowledge.EntityPath](query.Text(query.Latest))),
	))
	if err != nil {
		return knowledge.PersistedEntity{}, err
	}
	if len(entities) == 0 {
		return knowledge.PersistedEntity{}, ErrEntityDoesNotExist.WithDetail(detailEntityID, id.String())
	}
	return entities[0], nil
}

// GetEntity returns the entity versions matching the filter with their
// dependencies resolved to the requested depths.
func (s *Store) GetEntity(ctx context.Context, q StructuralQuery[knowledge.EntityPath]) (*subgraph.Subgraph, error) {
	ctx, span := tracing.Start(ctx, "graphstore.get_entity")
	defer span.End()
	done := observeQuery("entity")

	if err := q.GraphResolveDepths.Validate(s.query.MaxResolveDepth); err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	entities, err := s.readEntities(ctx, q.Filter)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("typegraph.roots", len(entities)))

	result, err := resolveRoots(ctx, s.resolver(), q.GraphResolveDepths, entities,
		func(ctx context.Context, dc *dependencyContext, entity knowledge.PersistedEntity) (subgraph.GraphElementIdentifier, error) {
			dc.entities.Insert(entity.ID(), Unresolved, entity)
			if err := dc.resolveEntity(ctx, entity.ID(), dc.depths); err != nil {
				return subgraph.GraphElementIdentifier{}, err
			}
			return subgraph.EntityID(entity.ID()), nil
		})
	done(result, err)
	if err != nil {
		tracing.RecordError(span, err)
		s.log.Warn("structural query failed", slog.String("kind", "entity"), logger.Error(err))
		return nil, err
	}
	return result, nil
}
