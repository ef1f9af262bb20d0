package knowledge

import (
	"encoding/json"

	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/query"
)

// Field is a token selecting a field or relation of an entity or link.
type Field string

const (
	FieldID          Field = "id"
	FieldVersion     Field = "version"
	FieldOwnedByID   Field = "ownedById"
	FieldCreatedByID Field = "createdById"
	FieldUpdatedByID Field = "updatedById"
	FieldType        Field = "type"
	FieldProperties  Field = "properties"
	FieldIndex       Field = "index"
	FieldSource      Field = "source"
	FieldTarget      Field = "target"
)

var (
	entityFields = []string{
		string(FieldID), string(FieldVersion), string(FieldOwnedByID), string(FieldCreatedByID),
		string(FieldUpdatedByID), string(FieldType), string(FieldProperties),
	}
	linkFields = []string{
		string(FieldOwnedByID), string(FieldCreatedByID), string(FieldIndex),
		string(FieldSource), string(FieldTarget), string(FieldType),
	}
)

// EntityPath addresses a field of an entity, a property of its document or,
// through `type`, a field of its entity type.
type EntityPath struct {
	Field       Field
	EntityType  *ontology.EntityTypePath
	PropertyKey string
}

func (p EntityPath) Segments() []query.PathSegment {
	switch {
	case p.EntityType != nil:
		return append(query.Segments(string(p.Field), "*"), p.EntityType.Segments()...)
	case p.Field == FieldProperties:
		return query.Segments(string(p.Field), p.PropertyKey)
	default:
		return query.Segments(string(p.Field))
	}
}

func VisitEntityPath(v *query.PathVisitor) (EntityPath, error) {
	token, err := v.Variant(entityFields)
	if err != nil {
		return EntityPath{}, err
	}
	path := EntityPath{Field: Field(token)}
	switch path.Field {
	case FieldType:
		if err := v.Wildcard(); err != nil {
			return EntityPath{}, err
		}
		nested, err := ontology.VisitEntityTypePath(v)
		if err != nil {
			return EntityPath{}, err
		}
		path.EntityType = &nested
	case FieldProperties:
		key, err := v.Next("a property key")
		if err != nil {
			return EntityPath{}, err
		}
		path.PropertyKey = key
	}
	return path, nil
}

func ParseEntityPath(tokens ...string) (EntityPath, error) {
	return query.ParsePath(tokens, VisitEntityPath)
}

func (p EntityPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *EntityPath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitEntityPath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// LinkPath addresses a field of a link or, through `source`, `target` and
// `type`, a field of a related record.
type LinkPath struct {
	Field    Field
	Source   *EntityPath
	Target   *EntityPath
	LinkType *ontology.LinkTypePath
}

func (p LinkPath) Segments() []query.PathSegment {
	switch {
	case p.Source != nil:
		return append(query.Segments(string(p.Field), "*"), p.Source.Segments()...)
	case p.Target != nil:
		return append(query.Segments(string(p.Field), "*"), p.Target.Segments()...)
	case p.LinkType != nil:
		return append(query.Segments(string(p.Field), "*"), p.LinkType.Segments()...)
	default:
		return query.Segments(string(p.Field))
	}
}

func VisitLinkPath(v *query.PathVisitor) (LinkPath, error) {
	token, err := v.Variant(linkFields)
	if err != nil {
		return LinkPath{}, err
	}
	path := LinkPath{Field: Field(token)}
	switch path.Field {
	case FieldSource, FieldTarget:
		if err := v.Wildcard(); err != nil {
			return LinkPath{}, err
		}
		nested, err := VisitEntityPath(v)
		if err != nil {
			return LinkPath{}, err
		}
		if path.Field == FieldSource {
			path.Source = &nested
		} else {
			path.Target = &nested
		}
	case FieldType:
		if err := v.Wildcard(); err != nil {
			return LinkPath{}, err
		}
		nested, err := ontology.VisitLinkTypePath(v)
		if err != nil {
			return LinkPath{}, err
		}
		path.LinkType = &nested
	}
	return path, nil
}

func ParseLinkPath(tokens ...string) (LinkPath, error) {
	return query.ParsePath(tokens, VisitLinkPath)
}

func (p LinkPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(query.Tokens(p.Segments()))
}

func (p *LinkPath) UnmarshalJSON(data []byte) error {
	parsed, err := query.UnmarshalPath(data, VisitLinkPath)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
