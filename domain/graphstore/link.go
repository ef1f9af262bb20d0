package graphstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/logger"
	"github.com/emergent-company/typegraph/pkg/pgutils"
	"github.com/emergent-company/typegraph/pkg/query"
	"github.com/emergent-company/typegraph/pkg/tracing"
)

// LinkQuery selects links with an interpreted expression. Links have no
// compiled mapping, so every live link is read and matched in memory.
type LinkQuery struct {
	Query              query.Expression            `json:"query"`
	GraphResolveDepths subgraph.GraphResolveDepths `json:"graphResolveDepths"`
}

// CreateLink stores a live link. At most one live link may exist per
// source, target and link type.
func (s *Store) CreateLink(ctx context.Context, link knowledge.Link, ownedBy, createdBy ontology.AccountID) error {
	ctx, span := tracing.Start(ctx, "graphstore.create_link",
		attribute.String("typegraph.link_id", link.ID().String()),
	)
	defer span.End()

	err := database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		linkTypeID, err := versionIDByURI(ctx, tx, link.LinkTypeID)
		if err != nil {
			return ErrInsertion.WithInternal(err).WithDetail(detailVersionedURI, link.LinkTypeID.String())
		}

		_, err = tx.NewInsert().
			Model(&LinkRow{
				SourceEntityID:    link.SourceEntityID,
				TargetEntityID:    link.TargetEntityID,
				LinkTypeVersionID: linkTypeID,
				LinkIndex:         link.Index,
				OwnedByID:         ownedBy,
				CreatedByID:       createdBy,
			}).
			Value("created_at", "clock_timestamp()").
			Exec(ctx)
		if pgutils.IsUniqueViolation(err) {
			return ErrLinkAlreadyExists.WithInternal(err).WithDetails(linkDetails(link))
		}
		if err != nil {
			return ErrInsertion.WithInternal(err).WithDetails(linkDetails(link))
		}
		return nil
	})
	err = writeError(err, ErrInsertion, linkDetails(link))
	observeWrite("create_link", err)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	s.log.Info("link created", slog.String("link_id", link.ID().String()))
	return nil
}

// RemoveLink moves a live link into link_histories, stamped with the remover
// and the database clock, in a single statement.
func (s *Store) RemoveLink(ctx context.Context, link knowledge.Link, removedBy ontology.AccountID) error {
	ctx, span := tracing.Start(ctx, "graphstore.remove_link",
		attribute.String("typegraph.link_id", link.ID().String()),
	)
	defer span.End()

	err := database.RunInTx(ctx, s.db, func(tx bun.IDB) error {
		result, err := tx.NewRaw(`
			WITH removed AS (
				DELETE FROM links
				WHERE source_entity_id = ?
					AND target_entity_id = ?
					AND link_type_version_id = (
						SELECT version_id FROM type_ids WHERE base_uri = ? AND version = ?
					)
				RETURNING source_entity_id, target_entity_id, link_type_version_id,
					link_index, owned_by_id, created_by_id, created_at
			)
			INSERT INTO link_histories (
				source_entity_id, target_entity_id, link_type_version_id,
				link_index, owned_by_id, created_by_id, created_at,
				removed_by_id, removed_at
			)
			SELECT source_entity_id, target_entity_id, link_type_version_id,
				link_index, owned_by_id, created_by_id, created_at,
				?, clock_timestamp()
			FROM removed`,
			link.SourceEntityID, link.TargetEntityID,
			link.LinkTypeID.BaseURI.String(), int64(link.LinkTypeID.Version),
			removedBy,
		).Exec(ctx)
		if err != nil {
			return errLinkRemovalFailed.WithInternal(err).WithDetails(linkDetails(link))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return errLinkRemovalFailed.WithInternal(err).WithDetails(linkDetails(link))
		}
		if affected == 0 {
			return ErrLinkRemoval.WithInternal(fmt.Errorf("no live link %s", link.ID())).WithDetails(linkDetails(link))
		}
		return nil
	})
	err = writeError(err, errLinkRemovalFailed, linkDetails(link))
	observeWrite("remove_link", err)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	s.log.Info("link removed",
		slog.String("link_id", link.ID().String()),
		slog.String("removed_by", removedBy.String()),
	)
	return nil
}

func linkDetails(link knowledge.Link) map[string]any {
	return map[string]any{
		"source_entity_id": link.SourceEntityID.String(),
		"target_entity_id": link.TargetEntityID.String(),
		detailVersionedURI: link.LinkTypeID.String(),
	}
}

// selectLinks reads live links with the versioned URI of their type.
func (s *Store) selectLinks(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) ([]knowledge.PersistedLink, error) {
	var rows []linkWithType
	q := s.db.NewSelect().
		TableExpr("links AS l").
		ColumnExpr("l.source_entity_id, l.target_entity_id, l.link_index, l.owned_by_id, l.created_by_id").
		ColumnExpr("ti.base_uri, ti.version").
		Join("JOIN type_ids AS ti ON ti.version_id = l.link_type_version_id")
	if where != nil {
		q = where(q)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, ErrQuery.WithInternal(err)
	}

	links := make([]knowledge.PersistedLink, 0, len(rows))
	for _, row := range rows {
		base, err := ontology.ParseBaseURI(row.BaseURI)
		if err != nil {
			return nil, ErrQuery.WithInternal(err)
		}
		links = append(links, knowledge.NewPersistedLink(knowledge.Link{
			SourceEntityID: row.SourceEntityID,
			TargetEntityID: row.TargetEntityID,
			LinkTypeID:     ontology.NewVersionedURI(base, uint32(row.Version)),
			Index:          row.LinkIndex,
		}, row.OwnedByID, row.CreatedByID))
	}
	return links, nil
}

func (s *Store) readOutgoingLinks(ctx context.Context, source knowledge.EntityID) ([]knowledge.PersistedLink, error) {
	return s.selectLinks(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("l.source_entity_id = ?", source)
	})
}

// readLinks scans every live link and keeps those the expression matches.
// A non-boolean result fails the whole read.
func (s *Store) readLinks(ctx context.Context, expression query.Expression) ([]knowledge.PersistedLink, error) {
	// TODO: compile link filters once links get a relational mapping instead of scanning every row.
	all, err := s.selectLinks(ctx, nil)
	if err != nil {
		return nil, err
	}

	var matched []knowledge.PersistedLink
	for _, link := range all {
		ok, err := expression.Matches(ctx, link, s)
		if err != nil {
			return nil, ErrQuery.WithInternal(err).WithDetails(linkDetails(link.Inner))
		}
		if ok {
			matched = append(matched, link)
		}
	}
	return matched, nil
}

// GetLink returns the links matching the expression with their dependencies
// resolved to the requested depths.
func (s *Store) GetLink(ctx context.Context, q LinkQuery) (*subgraph.Subgraph, error) {
	ctx, span := tracing.Start(ctx, "graphstore.get_link")
	defer span.End()
	done := observeQuery("link")

	if err := q.GraphResolveDepths.Validate(s.query.MaxResolveDepth); err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	links, err := s.readLinks(ctx, q.Query)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("typegraph.roots", len(links)))

	result, err := resolveRoots(ctx, s.resolver(), q.GraphResolveDepths, links,
		func(ctx context.Context, dc *dependencyContext, link knowledge.PersistedLink) (subgraph.GraphElementIdentifier, error) {
			dc.links.Insert(link, Unresolved)
			if err := dc.resolveLink(ctx, link, dc.depths); err != nil {
				return subgraph.GraphElementIdentifier{}, err
			}
			return subgraph.LinkID(link.Key()), nil
		})
	done(result, err)
	if err != nil {
		tracing.RecordError(span, err)
		s.log.Warn("structural query failed", slog.String("kind", "link"), logger.Error(err))
		return nil, err
	}
	return result, nil
}
