package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/logger"
	"github.com/emergent-company/typegraph/pkg/pgquery"
	"github.com/emergent-company/typegraph/pkg/pgutils"
	"github.com/emergent-company/typegraph/pkg/query"
	"github.com/emergent-company/typegraph/pkg/tracing"
)

// referenceSet is one reference table filled from a type document.
type referenceSet struct {
	table  string
	source string
	target string
	uris   []ontology.VersionedURI
}

// ontologyKind binds one of the four ontology kinds to its payload table,
// its compiled record mapping and the references its documents carry.
type ontologyKind[T ontology.Type, P query.Path] struct {
	kind       ontology.Kind
	table      string
	record     pgquery.Record[P]
	path       func(ontology.Field) P
	parse      func([]byte) (T, error)
	references func(T) []referenceSet
}

var dataTypes = ontologyKind[*ontology.DataType, ontology.DataTypePath]{
	kind:   ontology.KindDataType,
	table:  "data_types",
	record: dataTypeRecord{},
	path:   func(f ontology.Field) ontology.DataTypePath { return ontology.DataTypePath{Field: f} },
	parse:  ontology.ParseDataType,
	references: func(*ontology.DataType) []referenceSet {
		return nil
	},
}

var propertyTypes = ontologyKind[*ontology.PropertyType, ontology.PropertyTypePath]{
	kind:   ontology.KindPropertyType,
	table:  "property_types",
	record: propertyTypeRecord{},
	path:   func(f ontology.Field) ontology.PropertyTypePath { return ontology.PropertyTypePath{Field: f} },
	parse:  ontology.ParsePropertyType,
	references: func(p *ontology.PropertyType) []referenceSet {
		return []referenceSet{
			{
				table:  "property_type_data_type_references",
				source: "source_property_type_version_id",
				target: "target_data_type_version_id",
				uris:   p.DataTypeReferences(),
			},
			{
				table:  "property_type_property_type_references",
				source: "source_property_type_version_id",
				target: "target_property_type_version_id",
				uris:   p.PropertyTypeReferences(),
			},
		}
	},
}

var linkTypes = ontologyKind[*ontology.LinkType, ontology.LinkTypePath]{
	kind:   ontology.KindLinkType,
	table:  "link_types",
	record: linkTypeRecord{},
	path:   func(f ontology.Field) ontology.LinkTypePath { return ontology.LinkTypePath{Field: f} },
	parse:  ontology.ParseLinkType,
	references: func(*ontology.LinkType) []referenceSet {
		return nil
	},
}

var entityTypes = ontologyKind[*ontology.EntityType, ontology.EntityTypePath]{
	kind:   ontology.KindEntityType,
	table:  "entity_types",
	record: entityTypeRecord{},
	path:   func(f ontology.Field) ontology.EntityTypePath { return ontology.EntityTypePath{Field: f} },
	parse:  ontology.ParseEntityType,
	references: func(e *ontology.EntityType) []referenceSet {
		return []referenceSet{
			{
				table:  "entity_type_property_type_references",
				source: "source_entity_type_version_id",
				target: "target_property_type_version_id",
				uris:   e.PropertyTypeReferences(),
			},
			{
				table:  "entity_type_link_type_references",
				source: "source_entity_type_version_id",
				target: "target_link_type_version_id",
				uris:   e.LinkTypeReferences(),
			},
			{
				table:  "entity_type_entity_type_links",
				source: "source_entity_type_version_id",
				target: "target_entity_type_version_id",
				uris:   e.LinkTargetReferences(),
			},
		}
	},
}

// CreateDataType stores the first version of a data type.
func (s *Store) CreateDataType(ctx context.Context, dataType *ontology.DataType, ownedBy, createdBy ontology.AccountID) (ontology.Metadata, error) {
	return createOntologyType(ctx, s, dataTypes, dataType, ownedBy, createdBy)
}

// UpdateDataType stores a new version of an existing data type.
func (s *Store) UpdateDataType(ctx context.Context, dataType *ontology.DataType, updatedBy ontology.AccountID) (ontology.Metadata, error) {
	return updateOntologyType(ctx, s, dataTypes, dataType, updatedBy)
}

func (s *Store) CreatePropertyType(ctx context.Context, propertyType *ontology.PropertyType, ownedBy, createdBy ontology.AccountID) (ontology.Metadata, error) {
	return createOntologyType(ctx, s, propertyTypes, propertyType, ownedBy, createdBy)
}

func (s *Store) UpdatePropertyType(ctx context.Context, propertyType *ontology.PropertyType, updatedBy ontology.AccountID) (ontology.Metadata, error) {
	return updateOntologyType(ctx, s, propertyTypes, propertyType, updatedBy)
}

func (s *Store) CreateLinkType(ctx context.Context, linkType *ontology.LinkType, ownedBy, createdBy ontology.AccountID) (ontology.Metadata, error) {
	return createOntologyType(ctx, s, linkTypes, linkType, ownedBy, createdBy)
}

func (s *Store) UpdateLinkType(ctx context.Context, linkType *ontology.LinkType, updatedBy ontology.AccountID) (ontology.Metadata, error) {
	return updateOntologyType(ctx, s, linkTypes, linkType, updatedBy)
}

func (s *Store) CreateEntityType(ctx context.Context, entityType *ontology.EntityType, ownedBy, createdBy ontology.AccountID) (ontology.Metadata, error) {
	return createOntologyType(ctx, s, entityTypes, entityType, ownedBy, createdBy)
}

func (s *Store) UpdateEntityType(ctx context.Context, entityType *ontology.EntityType, updatedBy ontology.AccountID) (ontology.Metadata, error) {
	return updateOntologyType(ctx, s, entityTypes, entityType, updatedBy)
}

func createOntologyType[T ontology.Type, P query.Path](ctx context.Context, s *Store, k ontologyKind[T, P], doc T, ownedBy, createdBy ontology.AccountID) (ontology.Metadata, error) {
	uri := doc.ID()
	ctx, span := tracing.Start(ctx, "graphstore.create_"+string(k.kind),
		attribute.String("typegraph.versioned_uri", uri.String()),
	)
	defer span.End()

	err := database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		exists, err := containsBaseURI(ctx, tx, uri.BaseURI)
		if err != nil {
			return ErrInsertion.WithInternal(err).WithDetail(detailBaseURI, uri.BaseURI.String())
		}
		if exists {
			return ErrBaseURIAlreadyExists.WithDetail(detailBaseURI, uri.BaseURI.String())
		}

		if _, err := tx.NewInsert().Model(&BaseURI{BaseURI: uri.BaseURI.String()}).Exec(ctx); err != nil {
			return classifyInsertError(err, uri)
		}
		return insertOntologyVersion(ctx, tx, k, doc, ownedBy, createdBy, createdBy)
	})
	err = writeError(err, ErrInsertion, map[string]any{detailVersionedURI: uri.String()})
	observeWrite("create_"+string(k.kind), err)
	if err != nil {
		tracing.RecordError(span, err)
		return ontology.Metadata{}, err
	}

	s.log.Info("ontology type created",
		slog.String("kind", string(k.kind)),
		slog.String("uri", uri.String()),
	)
	return newOntologyMetadata(uri, ownedBy, createdBy, createdBy), nil
}

func updateOntologyType[T ontology.Type, P query.Path](ctx context.Context, s *Store, k ontologyKind[T, P], doc T, updatedBy ontology.AccountID) (ontology.Metadata, error) {
	uri := doc.ID()
	ctx, span := tracing.Start(ctx, "graphstore.update_"+string(k.kind),
		attribute.String("typegraph.versioned_uri", uri.String()),
	)
	defer span.End()

	var ownedBy, createdBy uuid.UUID
	err := database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		exists, err := containsBaseURI(ctx, tx, uri.BaseURI)
		if err != nil {
			return ErrUpdate.WithInternal(err).WithDetail(detailBaseURI, uri.BaseURI.String())
		}
		if !exists {
			return ErrBaseURIDoesNotExist.WithDetail(detailBaseURI, uri.BaseURI.String())
		}

		err = tx.NewSelect().
			Model((*OntologyType)(nil)).
			ModelTableExpr("? AS ot", bun.Ident(k.table)).
			ColumnExpr("ot.owned_by_id, ot.created_by_id").
			Join("JOIN type_ids AS ti ON ti.version_id = ot.version_id").
			Where("ti.base_uri = ?", uri.BaseURI.String()).
			OrderExpr("ti.version DESC").
			Limit(1).
			Scan(ctx, &ownedBy, &createdBy)
		if err != nil {
			return ErrUpdate.WithInternal(fmt.Errorf("read latest %s: %w", k.kind, err)).
				WithDetail(detailBaseURI, uri.BaseURI.String())
		}

		return insertOntologyVersion(ctx, tx, k, doc, ownedBy, createdBy, updatedBy)
	})
	err = writeError(err, ErrUpdate, map[string]any{detailVersionedURI: uri.String()})
	observeWrite("update_"+string(k.kind), err)
	if err != nil {
		tracing.RecordError(span, err)
		if errors.Is(err, ErrInsertion) {
			return ontology.Metadata{}, ErrUpdate.WithInternal(err).WithDetail(detailVersionedURI, uri.String())
		}
		return ontology.Metadata{}, err
	}

	s.log.Info("ontology type updated",
		slog.String("kind", string(k.kind)),
		slog.String("uri", uri.String()),
	)
	return newOntologyMetadata(uri, ownedBy, createdBy, updatedBy), nil
}

// insertOntologyVersion mints a version id for the document's versioned URI
// and stores the payload and its references.
func insertOntologyVersion[T ontology.Type, P query.Path](ctx context.Context, tx bun.IDB, k ontologyKind[T, P], doc T, ownedBy, createdBy, updatedBy ontology.AccountID) error {
	uri := doc.ID()

	exists, err := tx.NewSelect().
		Model((*TypeID)(nil)).
		Where("base_uri = ?", uri.BaseURI.String()).
		Where("version = ?", int64(uri.Version)).
		Exists(ctx)
	if err != nil {
		return ErrInsertion.WithInternal(err).WithDetail(detailVersionedURI, uri.String())
	}
	if exists {
		return ErrVersionedURIAlreadyExists.WithDetail(detailVersionedURI, uri.String())
	}

	schema, err := json.Marshal(doc)
	if err != nil {
		return ErrInsertion.WithInternal(err).WithDetail(detailVersionedURI, uri.String())
	}

	versionID := uuid.New()
	rows := []any{
		&VersionID{VersionID: versionID},
		&TypeID{BaseURI: uri.BaseURI.String(), Version: int64(uri.Version), VersionID: versionID},
	}
	for _, row := range rows {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return classifyInsertError(err, uri)
		}
	}

	_, err = tx.NewInsert().
		Model(&OntologyType{
			VersionID:   versionID,
			Schema:      schema,
			OwnedByID:   ownedBy,
			CreatedByID: createdBy,
			UpdatedByID: updatedBy,
		}).
		ModelTableExpr("?", bun.Ident(k.table)).
		Exec(ctx)
	if err != nil {
		return classifyInsertError(err, uri)
	}

	for _, ref := range k.references(doc) {
		for _, target := range ref.uris {
			targetID, err := versionIDByURI(ctx, tx, target)
			if err != nil {
				return ErrInsertion.WithInternal(err).
					WithDetail(detailVersionedURI, uri.String()).
					WithDetail("reference", target.String())
			}
			values := map[string]any{ref.source: versionID, ref.target: targetID}
			if _, err := tx.NewInsert().Model(&values).TableExpr(ref.table).Exec(ctx); err != nil {
				return ErrInsertion.WithInternal(err).
					WithDetail(detailVersionedURI, uri.String()).
					WithDetail("reference", target.String())
			}
		}
	}
	return nil
}

func containsBaseURI(ctx context.Context, db bun.IDB, base ontology.BaseURI) (bool, error) {
	return db.NewSelect().
		Model((*BaseURI)(nil)).
		Where("base_uri = ?", base.String()).
		Exists(ctx)
}

func versionIDByURI(ctx context.Context, db bun.IDB, uri ontology.VersionedURI) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.NewSelect().
		Model((*TypeID)(nil)).
		Column("version_id").
		Where("base_uri = ?", uri.BaseURI.String()).
		Where("version = ?", int64(uri.Version)).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("versioned URI %s does not exist", uri)
	}
	return id, err
}

// classifyInsertError maps unique violations that raced past the existence
// checks onto the conflict errors.
func classifyInsertError(err error, uri ontology.VersionedURI) error {
	if pgutils.IsUniqueViolation(err) {
		switch pgutils.ConstraintName(err) {
		case "base_uris_pkey":
			return ErrBaseURIAlreadyExists.WithInternal(err).WithDetail(detailBaseURI, uri.BaseURI.String())
		case "type_ids_pkey":
			return ErrVersionedURIAlreadyExists.WithInternal(err).WithDetail(detailVersionedURI, uri.String())
		}
	}
	return ErrInsertion.WithInternal(err).WithDetail(detailVersionedURI, uri.String())
}

func newOntologyMetadata(uri ontology.VersionedURI, ownedBy, createdBy, updatedBy ontology.AccountID) ontology.Metadata {
	return ontology.Metadata{
		Identifier:  ontology.Identifier{URI: uri, OwnedByID: ownedBy},
		CreatedByID: createdBy,
		UpdatedByID: updatedBy,
	}
}

// readOntologyTypes runs a compiled filter against the payload table of k.
// A zero filter matches every version.
func readOntologyTypes[T ontology.Type, P query.Path](ctx context.Context, s *Store, k ontologyKind[T, P], filter query.Filter[P]) ([]ontology.Record[T], error) {
	c := pgquery.NewCompiler(k.record)
	c.Select(c.BaseColumn("schema"), "")
	c.Select(c.BaseColumn("owned_by_id"), "")
	c.Select(c.BaseColumn("created_by_id"), "")
	c.Select(c.BaseColumn("updated_by_id"), "")
	version := c.Column(k.path(ontology.FieldVersion))
	c.Select(version, "")
	c.Select(version.LatestVersion(), "")
	if filter.Op != "" {
		c.Where(filter)
	}
	statement, args := c.Compile()

	s.log.Debug("compiled ontology query",
		slog.String("kind", string(k.kind)),
		slog.String("sql", statement),
		slog.Int("parameters", len(args)),
	)

	rows, err := s.pool.Query(ctx, statement, args...)
	if err != nil {
		return nil, ErrQuery.WithInternal(err)
	}
	defer rows.Close()

	var records []ontology.Record[T]
	for rows.Next() {
		var (
			schema                        []byte
			ownedBy, createdBy, updatedBy uuid.UUID
			version, latest               int64
		)
		if err := rows.Scan(&schema, &ownedBy, &createdBy, &updatedBy, &version, &latest); err != nil {
			return nil, ErrQuery.WithInternal(err)
		}
		doc, err := k.parse(schema)
		if err != nil {
			return nil, ErrQuery.WithInternal(fmt.Errorf("decode stored %s: %w", k.kind, err))
		}
		records = append(records, ontology.NewRecord(doc, ownedBy, createdBy, updatedBy, version == latest))
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQuery.WithInternal(err)
	}
	return records, nil
}

// readOntologyType reads exactly one version.
func readOntologyType[T ontology.Type, P query.Path](ctx context.Context, s *Store, k ontologyKind[T, P], uri ontology.VersionedURI) (ontology.Record[T], error) {
	filter := query.All(
		query.Equal(query.PathOperand(k.path(ontology.FieldBaseURI)), query.ParameterOperand[P](query.Text(uri.BaseURI.String()))),
		query.Equal(query.PathOperand(k.path(ontology.FieldVersion)), query.ParameterOperand[P](query.Number(float64(uri.Version)))),
	)
	records, err := readOntologyTypes(ctx, s, k, filter)
	if err != nil {
		return ontology.Record[T]{}, apperrorWithURI(err, uri)
	}
	if len(records) != 1 {
		return ontology.Record[T]{}, ErrQuery.
			WithInternal(fmt.Errorf("expected exactly one %s, found %d", k.kind, len(records))).
			WithDetail(detailVersionedURI, uri.String())
	}
	return records[0], nil
}

func apperrorWithURI(err error, uri ontology.VersionedURI) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.WithDetail(detailVersionedURI, uri.String())
	}
	return err
}

// getOntologyTypes answers a structural query over one ontology kind.
func getOntologyTypes[T ontology.Type, P query.Path](
	ctx context.Context,
	s *Store,
	k ontologyKind[T, P],
	q StructuralQuery[P],
	resolve func(ctx context.Context, dc *dependencyContext, uri ontology.VersionedURI) error,
	seed func(dc *dependencyContext, record ontology.Record[T]),
) (*subgraph.Subgraph, error) {
	ctx, span := tracing.Start(ctx, "graphstore.get_"+string(k.kind))
	defer span.End()
	done := observeQuery(string(k.kind))

	if err := q.GraphResolveDepths.Validate(s.query.MaxResolveDepth); err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	records, err := readOntologyTypes(ctx, s, k, q.Filter)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("typegraph.roots", len(records)))

	result, err := resolveRoots(ctx, s.resolver(), q.GraphResolveDepths, records,
		func(ctx context.Context, dc *dependencyContext, record ontology.Record[T]) (subgraph.GraphElementIdentifier, error) {
			seed(dc, record)
			if err := resolve(ctx, dc, record.URI()); err != nil {
				return subgraph.GraphElementIdentifier{}, err
			}
			return subgraph.OntologyID(record.URI()), nil
		})
	done(result, err)
	if err != nil {
		tracing.RecordError(span, err)
		s.log.Warn("structural query failed", slog.String("kind", string(k.kind)), logger.Error(err))
		return nil, err
	}
	return result, nil
}

// GetDataType returns the data types matching the filter with their
// dependencies resolved to the requested depths.
func (s *Store) GetDataType(ctx context.Context, q StructuralQuery[ontology.DataTypePath]) (*subgraph.Subgraph, error) {
	return getOntologyTypes(ctx, s, dataTypes, q,
		func(ctx context.Context, dc *dependencyContext, uri ontology.VersionedURI) error {
			return dc.resolveDataType(ctx, uri, dc.depths)
		},
		func(dc *dependencyContext, r ontology.DataTypeRecord) {
			dc.dataTypes.Insert(r.URI(), Unresolved, r)
		})
}

func (s *Store) GetPropertyType(ctx context.Context, q StructuralQuery[ontology.PropertyTypePath]) (*subgraph.Subgraph, error) {
	return getOntologyTypes(ctx, s, propertyTypes, q,
		func(ctx context.Context, dc *dependencyContext, uri ontology.VersionedURI) error {
			return dc.resolvePropertyType(ctx, uri, dc.depths)
		},
		func(dc *dependencyContext, r ontology.PropertyTypeRecord) {
			dc.propertyTypes.Insert(r.URI(), Unresolved, r)
		})
}

func (s *Store) GetLinkType(ctx context.Context, q StructuralQuery[ontology.LinkTypePath]) (*subgraph.Subgraph, error) {
	return getOntologyTypes(ctx, s, linkTypes, q,
		func(ctx context.Context, dc *dependencyContext, uri ontology.VersionedURI) error {
			return dc.resolveLinkType(ctx, uri, dc.depths)
		},
		func(dc *dependencyContext, r ontology.LinkTypeRecord) {
			dc.linkTypes.Insert(r.URI(), Unresolved, r)
		})
}

func (s *Store) GetEntityType(ctx context.Context, q StructuralQuery[ontology.EntityTypePath]) (*subgraph.Subgraph, error) {
	return getOntologyTypes(ctx, s, entityTypes, q,
		func(ctx context.Context, dc *dependencyContext, uri ontology.VersionedURI) error {
			return dc.resolveEntityType(ctx, uri, dc.depths)
		},
		func(dc *dependencyContext, r ontology.EntityTypeRecord) {
			dc.entityTypes.Insert(r.URI(), Unresolved, r)
		})
}
