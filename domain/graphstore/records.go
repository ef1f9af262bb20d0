package graphstore

import (
	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/pgquery"
)

// typeIDs is joined from every ontology payload table to reach its base URI
// and version. The window adds the latest version of each base URI.
var typeIDs = pgquery.Relation{
	From: "version_id",
	Join: pgquery.Source{
		Name:   "type_ids",
		Window: &pgquery.VersionWindow{Version: "version", PartitionBy: "base_uri"},
	},
	To: "version_id",
}

// references is the pair of hops from a payload row through a reference
// table to the payload table it references.
func references(table, source, target, joined string) []pgquery.Relation {
	return []pgquery.Relation{
		{From: "version_id", Join: pgquery.Source{Name: table}, To: source, ToMany: true},
		{From: target, Join: pgquery.Source{Name: joined}, To: "version_id"},
	}
}

// ontologyField maps the fields every ontology type shares.
func ontologyField(field ontology.Field) ([]pgquery.Relation, pgquery.Access) {
	switch field {
	case ontology.FieldOwnedByID:
		return nil, pgquery.ColumnAccess("owned_by_id")
	case ontology.FieldBaseURI:
		return []pgquery.Relation{typeIDs}, pgquery.ColumnAccess("base_uri")
	case ontology.FieldVersionedURI:
		return []pgquery.Relation{typeIDs}, pgquery.VersionedURIAccess()
	case ontology.FieldVersion:
		return []pgquery.Relation{typeIDs}, pgquery.VersionAccess("version")
	default:
		return nil, pgquery.JSONFieldAccess("schema", string(field))
	}
}

type dataTypeRecord struct{}

func (dataTypeRecord) Base() pgquery.Source { return pgquery.Source{Name: "data_types"} }

func (dataTypeRecord) Relations(p ontology.DataTypePath) []pgquery.Relation {
	relations, _ := ontologyField(p.Field)
	return relations
}

func (dataTypeRecord) Access(p ontology.DataTypePath) pgquery.Access {
	_, access := ontologyField(p.Field)
	return access
}

type propertyTypeRecord struct{}

func (propertyTypeRecord) Base() pgquery.Source { return pgquery.Source{Name: "property_types"} }

func (r propertyTypeRecord) Relations(p ontology.PropertyTypePath) []pgquery.Relation {
	switch {
	case p.Field == ontology.FieldDataTypes && p.DataType != nil:
		return append(
			references("property_type_data_type_references", "source_property_type_version_id", "target_data_type_version_id", "data_types"),
			dataTypeRecord{}.Relations(*p.DataType)...,
		)
	case p.Field == ontology.FieldPropertyTypes && p.PropertyType != nil:
		return append(
			references("property_type_property_type_references", "source_property_type_version_id", "target_property_type_version_id", "property_types"),
			r.Relations(*p.PropertyType)...,
		)
	default:
		relations, _ := ontologyField(p.Field)
		return relations
	}
}

func (r propertyTypeRecord) Access(p ontology.PropertyTypePath) pgquery.Access {
	switch {
	case p.Field == ontology.FieldDataTypes && p.DataType != nil:
		return dataTypeRecord{}.Access(*p.DataType)
	case p.Field == ontology.FieldPropertyTypes && p.PropertyType != nil:
		return r.Access(*p.PropertyType)
	default:
		_, access := ontologyField(p.Field)
		return access
	}
}

type linkTypeRecord struct{}

func (linkTypeRecord) Base() pgquery.Source { return pgquery.Source{Name: "link_types"} }

func (linkTypeRecord) Relations(p ontology.LinkTypePath) []pgquery.Relation {
	relations, _ := ontologyField(p.Field)
	return relations
}

func (linkTypeRecord) Access(p ontology.LinkTypePath) pgquery.Access {
	_, access := ontologyField(p.Field)
	return access
}

type entityTypeRecord struct{}

func (entityTypeRecord) Base() pgquery.Source { return pgquery.Source{Name: "entity_types"} }

func (entityTypeRecord) Relations(p ontology.EntityTypePath) []pgquery.Relation {
	switch {
	case p.Field == ontology.FieldPropertyTypes && p.PropertyType != nil:
		return append(
			references("entity_type_property_type_references", "source_entity_type_version_id", "target_property_type_version_id", "property_types"),
			propertyTypeRecord{}.Relations(*p.PropertyType)...,
		)
	case p.Field == ontology.FieldLinkTypes && p.LinkType != nil:
		return append(
			references("entity_type_link_type_references", "source_entity_type_version_id", "target_link_type_version_id", "link_types"),
			linkTypeRecord{}.Relations(*p.LinkType)...,
		)
	default:
		relations, _ := ontologyField(p.Field)
		return relations
	}
}

func (entityTypeRecord) Access(p ontology.EntityTypePath) pgquery.Access {
	switch {
	case p.Field == ontology.FieldPropertyTypes && p.PropertyType != nil:
		return propertyTypeRecord{}.Access(*p.PropertyType)
	case p.Field == ontology.FieldLinkTypes && p.LinkType != nil:
		return linkTypeRecord{}.Access(*p.LinkType)
	default:
		_, access := ontologyField(p.Field)
		return access
	}
}

// entityRecord reads entities through a window holding the latest version
// of every entity id.
type entityRecord struct{}

func (entityRecord) Base() pgquery.Source {
	return pgquery.Source{
		Name:   "entities",
		Window: &pgquery.VersionWindow{Version: "version", PartitionBy: "entity_id"},
	}
}

func (entityRecord) Relations(p knowledge.EntityPath) []pgquery.Relation {
	if p.Field != knowledge.FieldType || p.EntityType == nil {
		return nil
	}
	return append(
		[]pgquery.Relation{{From: "entity_type_version_id", Join: pgquery.Source{Name: "entity_types"}, To: "version_id"}},
		entityTypeRecord{}.Relations(*p.EntityType)...,
	)
}

func (entityRecord) Access(p knowledge.EntityPath) pgquery.Access {
	switch p.Field {
	case knowledge.FieldID:
		return pgquery.ColumnAccess("entity_id")
	case knowledge.FieldVersion:
		return pgquery.VersionAccess("version")
	case knowledge.FieldOwnedByID:
		return pgquery.ColumnAccess("owned_by_id")
	case knowledge.FieldCreatedByID:
		return pgquery.ColumnAccess("created_by_id")
	case knowledge.FieldUpdatedByID:
		return pgquery.ColumnAccess("updated_by_id")
	case knowledge.FieldProperties:
		return pgquery.JSONParameterAccess("properties", p.PropertyKey)
	case knowledge.FieldType:
		if p.EntityType != nil {
			return entityTypeRecord{}.Access(*p.EntityType)
		}
		return pgquery.ColumnAccess("entity_type_version_id")
	default:
		return pgquery.ColumnAccess(string(p.Field))
	}
}
