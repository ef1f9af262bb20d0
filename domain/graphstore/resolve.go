package graphstore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/query"
)

// dependencyReader loads the records the engine expands into.
type dependencyReader interface {
	readDataType(ctx context.Context, uri ontology.VersionedURI) (ontology.DataTypeRecord, error)
	readPropertyType(ctx context.Context, uri ontology.VersionedURI) (ontology.PropertyTypeRecord, error)
	readLinkType(ctx context.Context, uri ontology.VersionedURI) (ontology.LinkTypeRecord, error)
	readEntityType(ctx context.Context, uri ontology.VersionedURI) (ontology.EntityTypeRecord, error)
	readLatestEntity(ctx context.Context, id knowledge.EntityID) (knowledge.PersistedEntity, error)
	readOutgoingLinks(ctx context.Context, source knowledge.EntityID) ([]knowledge.PersistedLink, error)
}

// StructuralQuery selects roots with a filter over paths of type P and
// bounds how far their dependencies are resolved.
type StructuralQuery[P query.Path] struct {
	Filter             query.Filter[P]             `json:"filter"`
	GraphResolveDepths subgraph.GraphResolveDepths `json:"graphResolveDepths"`
}

type resolver struct {
	reader      dependencyReader
	concurrency int
}

func (s *Store) resolver() resolver {
	return resolver{reader: s, concurrency: s.query.Concurrency()}
}

// resolveRoots gives every root its own dependency context, resolves the
// contexts concurrently and merges the resulting subgraphs. The first failure
// cancels the remaining roots and no partial result is returned.
func resolveRoots[R any](
	ctx context.Context,
	r resolver,
	depths subgraph.GraphResolveDepths,
	roots []R,
	resolve func(ctx context.Context, dc *dependencyContext, root R) (subgraph.GraphElementIdentifier, error),
) (*subgraph.Subgraph, error) {
	subgraphs := make([]*subgraph.Subgraph, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, root := range roots {
		g.Go(func() error {
			dc := newDependencyContext(r.reader, depths)
			id, err := resolve(ctx, dc, root)
			if err != nil {
				return err
			}
			subgraphs[i] = dc.intoSubgraph([]subgraph.GraphElementIdentifier{id})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := subgraph.New(depths)
	for _, s := range subgraphs {
		result.Merge(s)
	}
	return result, nil
}

func (dc *dependencyContext) resolveDataType(ctx context.Context, uri ontology.VersionedURI, depths subgraph.GraphResolveDepths) error {
	_, _, err := dc.dataTypes.InsertWith(uri, depths.DataTypeResolveDepth, func() (ontology.DataTypeRecord, error) {
		return dc.reader.readDataType(ctx, uri)
	})
	return readFailure(err, detailVersionedURI, uri.String())
}

func (dc *dependencyContext) resolvePropertyType(ctx context.Context, uri ontology.VersionedURI, depths subgraph.GraphResolveDepths) error {
	propertyType, further, err := dc.propertyTypes.InsertWith(uri, depths.PropertyTypeResolveDepth, func() (ontology.PropertyTypeRecord, error) {
		return dc.reader.readPropertyType(ctx, uri)
	})
	if err != nil || !further {
		return readFailure(err, detailVersionedURI, uri.String())
	}
	source := subgraph.OntologyID(uri)

	if depths.DataTypeResolveDepth > 0 {
		child := depths
		child.DataTypeResolveDepth--
		for _, ref := range propertyType.Inner.DataTypeReferences() {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeReferences, Destination: subgraph.OntologyID(ref)})
			if err := dc.resolveDataType(ctx, ref, child); err != nil {
				return err
			}
		}
	}

	if depths.PropertyTypeResolveDepth > 0 {
		child := depths
		child.PropertyTypeResolveDepth--
		for _, ref := range propertyType.Inner.PropertyTypeReferences() {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeReferences, Destination: subgraph.OntologyID(ref)})
			if err := dc.resolvePropertyType(ctx, ref, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dc *dependencyContext) resolveLinkType(ctx context.Context, uri ontology.VersionedURI, depths subgraph.GraphResolveDepths) error {
	_, _, err := dc.linkTypes.InsertWith(uri, depths.LinkTypeResolveDepth, func() (ontology.LinkTypeRecord, error) {
		return dc.reader.readLinkType(ctx, uri)
	})
	return readFailure(err, detailVersionedURI, uri.String())
}

func (dc *dependencyContext) resolveEntityType(ctx context.Context, uri ontology.VersionedURI, depths subgraph.GraphResolveDepths) error {
	entityType, further, err := dc.entityTypes.InsertWith(uri, depths.EntityTypeResolveDepth, func() (ontology.EntityTypeRecord, error) {
		return dc.reader.readEntityType(ctx, uri)
	})
	if err != nil || !further {
		return readFailure(err, detailVersionedURI, uri.String())
	}
	source := subgraph.OntologyID(uri)

	if depths.PropertyTypeResolveDepth > 0 {
		child := depths
		child.PropertyTypeResolveDepth--
		for _, ref := range entityType.Inner.PropertyTypeReferences() {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeReferences, Destination: subgraph.OntologyID(ref)})
			if err := dc.resolvePropertyType(ctx, ref, child); err != nil {
				return err
			}
		}
	}

	if depths.LinkTypeResolveDepth > 0 {
		child := depths
		child.LinkTypeResolveDepth--
		for _, ref := range entityType.Inner.LinkTypeReferences() {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeReferences, Destination: subgraph.OntologyID(ref)})
			if err := dc.resolveLinkType(ctx, ref, child); err != nil {
				return err
			}
		}
	}

	if depths.EntityTypeResolveDepth > 0 {
		child := depths
		child.EntityTypeResolveDepth--
		for _, ref := range entityType.Inner.LinkTargetReferences() {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeReferences, Destination: subgraph.OntologyID(ref)})
			if err := dc.resolveEntityType(ctx, ref, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dc *dependencyContext) resolveEntity(ctx context.Context, id knowledge.EntityID, depths subgraph.GraphResolveDepths) error {
	entity, further, err := dc.entities.InsertWith(id, depths.LinkTargetEntityResolveDepth, func() (knowledge.PersistedEntity, error) {
		return dc.reader.readLatestEntity(ctx, id)
	})
	if err != nil || !further {
		return readFailure(err, detailEntityID, id.String())
	}
	source := subgraph.EntityID(id)

	if depths.EntityTypeResolveDepth > 0 {
		child := depths
		child.EntityTypeResolveDepth--
		entityTypeID := entity.Metadata.EntityTypeID
		dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeHasType, Destination: subgraph.OntologyID(entityTypeID)})
		if err := dc.resolveEntityType(ctx, entityTypeID, child); err != nil {
			return err
		}
	}

	if depths.LinkResolveDepth > 0 {
		links, err := dc.reader.readOutgoingLinks(ctx, id)
		if err != nil {
			return readFailure(err, detailEntityID, id.String())
		}
		child := depths
		child.LinkResolveDepth--
		for _, link := range links {
			dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeHasLink, Destination: subgraph.LinkID(link.Key())})
			if err := dc.resolveLink(ctx, link, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dc *dependencyContext) resolveLink(ctx context.Context, link knowledge.PersistedLink, depths subgraph.GraphResolveDepths) error {
	if _, further := dc.links.Insert(link, depths.LinkResolveDepth); !further {
		return nil
	}
	source := subgraph.LinkID(link.Key())

	if depths.LinkTypeResolveDepth > 0 {
		child := depths
		child.LinkTypeResolveDepth--
		linkTypeID := link.Inner.LinkTypeID
		dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeHasType, Destination: subgraph.OntologyID(linkTypeID)})
		if err := dc.resolveLinkType(ctx, linkTypeID, child); err != nil {
			return err
		}
	}

	if depths.LinkTargetEntityResolveDepth > 0 {
		child := depths
		child.LinkTargetEntityResolveDepth--
		target := link.Inner.TargetEntityID
		dc.edges.Insert(source, subgraph.OutwardEdge{EdgeKind: subgraph.EdgeHasDestination, Destination: subgraph.EntityID(target)})
		if err := dc.resolveEntity(ctx, target, child); err != nil {
			return err
		}
	}
	return nil
}

// readFailure reports a failed read as a query error naming the record.
func readFailure(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.WithDetail(key, value)
	}
	return ErrQuery.WithInternal(err).WithDetail(key, value)
}
