package ontology

import (
	"encoding/json"

	"github.com/emergent-company/typegraph/pkg/query"
)

// Field is a token selecting a field or relation of an ontology type.
type Field string

const (
	FieldOwnedByID       Field = "ownedById"
	FieldBaseURI         Field = "baseUri"
	FieldVersionedURI    Field = "versionedUri"
	FieldVersion         Field = "version"
	FieldTitle           Field = "title"
	FieldDescription     Field = "description"
	FieldType            Field = "type"
	FieldDataTypes       Field = "dataTypes"
	FieldPropertyTypes   Field = "propertyTypes"
	FieldLinkTypes       Field = "linkTypes"
	FieldRelatedKeywords Field = "relatedKeywords"
)

var sharedFields = []string{
	string(FieldOwnedByID),
	string(FieldBaseURI),
	string(FieldVersionedURI),
	string(FieldVersion),
	string(FieldTitle),
	string(FieldDescription),
}

func fields(extra ...Field) []string {
	out := append([]string(nil), sharedFields...)
	for _, f := range extra {
		out = append(out, string(f))
	}
	return out
}

var (
	dataTypeFields     = fields(FieldType)
	propertyTypeFields = fields(FieldDataTypes, FieldPropertyTypes)
	linkTypeFields     = fields(FieldRelatedKeywords)
	entityTypeFields   = fields(FieldPropertyTypes, FieldLinkTypes)
)

// DataTypePath addresses a field of a data type.
type DataTypePath struct {
	Field Field
}

func (p DataTypePath) Segments() []query.PathSegment {
	return query.Segments(string(p.Field))
}

// VisitDataTypePath parses a data type path from the visitor's remaining tokens.
func VisitDataTypePath(v *query.PathVisitor) (DataTypePath, error) {
	token, err := v.Variant(dataTypeFields)
	if err != nil {
		return DataTypePath{}, err
	}
	return DataTypePath{Field: Field(token)}, nil
}

// ParseDataTypePath parses a complete data type path.
func ParseDataTypePath(tokens ...string) (DataTypePath, error) {
	return query.ParsePath(tokens, VisitDataTypePath)
}

func (p DataTypePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *DataTypePath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitDataTypePath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PropertyTypePath addresses a field of a property type or, through
// `dataTypes` and `propertyTypes`, a field of a referenced type.
type PropertyTypePath struct {
	Field        Field
	DataType     *DataTypePath
	PropertyType *PropertyTypePath
}

func (p PropertyTypePath) Segments() []query.PathSegment {
	switch {
	case p.DataType != nil:
		return append(query.Segments(string(p.Field), "*"), p.DataType.Segments()...)
	case p.PropertyType != nil:
		return append(query.Segments(string(p.Field), "*"), p.PropertyType.Segments()...)
	default:
		return query.Segments(string(p.Field))
	}
}

func VisitPropertyTypePath(v *query.PathVisitor) (PropertyTypePath, error) {
	token, err := v.Variant(propertyTypeFields)
	if err != nil {
		return PropertyTypePath{}, err
	}
	path := PropertyTypePath{Field: Field(token)}
	switch path.Field {
	case FieldDataTypes:
		if err := v.Wildcard(); err != nil {
			return PropertyTypePath{}, err
		}
		nested, err := VisitDataTypePath(v)
		if err != nil {
			return PropertyTypePath{}, err
		}
		path.DataType = &nested
	case FieldPropertyTypes:
		if err := v.Wildcard(); err != nil {
			return PropertyTypePath{}, err
		}
		nested, err := VisitPropertyTypePath(v)
		if err != nil {
			return PropertyTypePath{}, err
		}
		path.PropertyType = &nested
	}
	return path, nil
}

func ParsePropertyTypePath(tokens ...string) (PropertyTypePath, error) {
	return query.ParsePath(tokens, VisitPropertyTypePath)
}

func (p PropertyTypePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *PropertyTypePath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitPropertyTypePath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// LinkTypePath addresses a field of a link type.
type LinkTypePath struct {
	Field Field
}

func (p LinkTypePath) Segments() []query.PathSegment {
	return query.Segments(string(p.Field))
}

func VisitLinkTypePath(v *query.PathVisitor) (LinkTypePath, error) {
	token, err := v.Variant(linkTypeFields)
	if err != nil {
		return LinkTypePath{}, err
	}
	return LinkTypePath{Field: Field(token)}, nil
}

func ParseLinkTypePath(tokens ...string) (LinkTypePath, error) {
	return query.ParsePath(tokens, VisitLinkTypePath)
}

func (p LinkTypePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *LinkTypePath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitLinkTypePath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EntityTypePath addresses a field of an entity type or, through
// `propertyTypes` and `linkTypes`, a field of a referenced type.
type EntityTypePath struct {
	Field        Field
	PropertyType *PropertyTypePath
	LinkType     *LinkTypePath
}

func (p EntityTypePath) Segments() []query.PathSegment {
	switch {
	case p.PropertyType != nil:
		return append(query.Segments(string(p.Field), "*"), p.PropertyType.Segments()...)
	case p.LinkType != nil:
		return append(query.Segments(string(p.Field), "*"), p.LinkType.Segments()...)
	default:
		return query.Segments(string(p.Field))
	}
}

func VisitEntityTypePath(v *query.PathVisitor) (EntityTypePath, error) {
	token, err := v.Variant(entityTypeFields)
	if err != nil {
		return EntityTypePath{}, err
	}
	path := EntityTypePath{Field: Field(token)}
	switch path.Field {
	case FieldPropertyTypes:
		if err := v.Wildcard(); err != nil {
			return EntityTypePath{}, err
		}
		nested, err := VisitPropertyTypePath(v)
		if err != nil {
			return EntityTypePath{}, err
		}
		path.PropertyType = &nested
	case FieldLinkTypes:
		if err := v.Wildcard(); err != nil {
			return EntityTypePath{}, err
		}
		nested, err := VisitLinkTypePath(v)
		if err != nil {
			return EntityTypePath{}, err
		}
		path.LinkType = &nested
	}
	return path, nil
}

func ParseEntityTypePath(tokens ...string) (EntityTypePath, error) {
	return query.ParsePath(tokens, VisitEntityTypePath)
}

func (p EntityTypePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *EntityTypePath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitEntityTypePath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
