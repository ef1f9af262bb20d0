package ontology

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/emergent-company/typegraph/pkg/query"
)

// Kind names one of the four ontology type kinds.
type Kind string

const (
	KindDataType     Kind = "dataType"
	KindPropertyType Kind = "propertyType"
	KindLinkType     Kind = "linkType"
	KindEntityType   Kind = "entityType"
)

// Type is a schema document of one of the four kinds. Documents keep the
// JSON they were decoded from so storing and returning them is lossless.
type Type interface {
	Kind() Kind
	ID() VersionedURI
	Title() string
	Description() *string
	// ResolveField resolves a kind-specific field for the query interpreter.
	// ok is false when the field is not specific to this kind.
	ResolveField(ctx context.Context, field query.PathSegment, rest []query.PathSegment, reader query.RecordReader) (value query.Literal, ok bool, err error)
	json.Marshaler
}

// header holds the fields shared by every type document.
type header struct {
	raw         json.RawMessage
	doc         map[string]any
	kind        Kind
	id          VersionedURI
	title       string
	description *string
}

func parseHeader(data []byte, kind Kind) (header, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return header{}, fmt.Errorf("%s must be a JSON object: %w", kind, err)
	}

	if k, ok := doc["kind"]; ok && k != string(kind) {
		return header{}, fmt.Errorf("expected kind %q, got %v", kind, k)
	}

	rawID, _ := doc["$id"].(string)
	if rawID == "" {
		return header{}, fmt.Errorf("%s is missing `$id`", kind)
	}
	id, err := ParseVersionedURI(rawID)
	if err != nil {
		return header{}, err
	}

	title, _ := doc["title"].(string)
	if title == "" {
		return header{}, fmt.Errorf("%s %s is missing `title`", kind, rawID)
	}

	h := header{
		raw:   append(json.RawMessage(nil), data...),
		doc:   doc,
		kind:  kind,
		id:    id,
		title: title,
	}
	if description, ok := doc["description"].(string); ok {
		h.description = &description
	}
	return h, nil
}

func (h header) Kind() Kind           { return h.kind }
func (h header) ID() VersionedURI     { return h.id }
func (h header) Title() string        { return h.title }
func (h header) Description() *string { return h.description }

// Document is the decoded JSON document.
func (h header) Document() map[string]any { return h.doc }

func (h header) MarshalJSON() ([]byte, error) {
	if h.raw == nil {
		return []byte("null"), nil
	}
	return h.raw, nil
}

// DataType describes a primitive value.
type DataType struct {
	header
	jsonType string
}

// ParseDataType decodes a data type document.
func ParseDataType(data []byte) (*DataType, error) {
	h, err := parseHeader(data, KindDataType)
	if err != nil {
		return nil, err
	}
	jsonType, _ := h.doc["type"].(string)
	if jsonType == "" {
		return nil, fmt.Errorf("data type %s is missing `type`", h.id)
	}
	return &DataType{header: h, jsonType: jsonType}, nil
}

// JSONType is the JSON type of values of this data type.
func (d *DataType) JSONType() string { return d.jsonType }

func (d *DataType) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDataType(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d *DataType) ResolveField(_ context.Context, field query.PathSegment, rest []query.PathSegment, _ query.RecordReader) (query.Literal, bool, error) {
	if field != "type" {
		return query.Literal{}, false, nil
	}
	if len(rest) > 0 {
		return query.NullLiteral(), true, nil
	}
	return query.StringLiteral(d.jsonType), true, nil
}

// PropertyType describes a property whose values are data types, nested
// property objects or arrays of either.
type PropertyType struct {
	header
	dataTypes     []VersionedURI
	propertyTypes []VersionedURI
}

// ParsePropertyType decodes a property type document and collects its references.
func ParsePropertyType(data []byte) (*PropertyType, error) {
	h, err := parseHeader(data, KindPropertyType)
	if err != nil {
		return nil, err
	}
	oneOf, ok := h.doc["oneOf"].([]any)
	if !ok || len(oneOf) == 0 {
		return nil, fmt.Errorf("property type %s must define `oneOf`", h.id)
	}

	p := &PropertyType{header: h}
	refs := newReferenceCollector()
	for _, value := range oneOf {
		if err := refs.propertyValue(value); err != nil {
			return nil, fmt.Errorf("property type %s: %w", h.id, err)
		}
	}
	p.dataTypes = refs.sorted(refs.dataTypes)
	p.propertyTypes = refs.sorted(refs.propertyTypes)
	return p, nil
}

// DataTypeReferences are the data types this property type can hold.
func (p *PropertyType) DataTypeReferences() []VersionedURI { return p.dataTypes }

// PropertyTypeReferences are the property types nested in this property type.
func (p *PropertyType) PropertyTypeReferences() []VersionedURI { return p.propertyTypes }

func (p *PropertyType) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePropertyType(data)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

func (p *PropertyType) ResolveField(ctx context.Context, field query.PathSegment, rest []query.PathSegment, reader query.RecordReader) (query.Literal, bool, error) {
	switch field {
	case "dataTypes":
		value, err := query.ResolveCollection(ctx, rest, reader, query.KindDataType, uriStrings(p.dataTypes))
		return value, true, err
	case "propertyTypes":
		value, err := query.ResolveCollection(ctx, rest, reader, query.KindPropertyType, uriStrings(p.propertyTypes))
		return value, true, err
	default:
		return query.Literal{}, false, nil
	}
}

// LinkType describes a directed relation between entities.
type LinkType struct {
	header
	relatedKeywords []string
}

// ParseLinkType decodes a link type document.
func ParseLinkType(data []byte) (*LinkType, error) {
	h, err := parseHeader(data, KindLinkType)
	if err != nil {
		return nil, err
	}
	l := &LinkType{header: h}
	if keywords, ok := h.doc["relatedKeywords"].([]any); ok {
		for _, k := range keywords {
			if s, ok := k.(string); ok {
				l.relatedKeywords = append(l.relatedKeywords, s)
			}
		}
	}
	return l, nil
}

func (l *LinkType) RelatedKeywords() []string { return l.relatedKeywords }

func (l *LinkType) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLinkType(data)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}

func (l *LinkType) ResolveField(_ context.Context, field query.PathSegment, rest []query.PathSegment, _ query.RecordReader) (query.Literal, bool, error) {
	if field != "relatedKeywords" {
		return query.Literal{}, false, nil
	}
	items := make([]query.Literal, len(l.relatedKeywords))
	for i, k := range l.relatedKeywords {
		items[i] = query.StringLiteral(k)
	}
	if len(rest) > 0 {
		return query.NullLiteral(), true, nil
	}
	return query.ListLiteral(items...), true, nil
}

// EntityType describes the properties and links of an entity.
type EntityType struct {
	header
	propertyTypes []VersionedURI
	linkTypes     []VersionedURI
	linkTargets   []VersionedURI
}

// ParseEntityType decodes an entity type document and collects its references.
func ParseEntityType(data []byte) (*EntityType, error) {
	h, err := parseHeader(data, KindEntityType)
	if err != nil {
		return nil, err
	}

	e := &EntityType{header: h}
	refs := newReferenceCollector()
	if properties, ok := h.doc["properties"].(map[string]any); ok {
		for _, value := range properties {
			if err := refs.propertyReference(value); err != nil {
				return nil, fmt.Errorf("entity type %s: %w", h.id, err)
			}
		}
	}

	links := make(map[VersionedURI]struct{})
	if rawLinks, ok := h.doc["links"].(map[string]any); ok {
		for key, value := range rawLinks {
			uri, err := ParseVersionedURI(key)
			if err != nil {
				return nil, fmt.Errorf("entity type %s: link %w", h.id, err)
			}
			links[uri] = struct{}{}
			if err := refs.collect(value, refs.entityTypes); err != nil {
				return nil, fmt.Errorf("entity type %s: %w", h.id, err)
			}
		}
	}

	e.propertyTypes = refs.sorted(refs.propertyTypes)
	e.linkTypes = refs.sorted(links)
	e.linkTargets = refs.sorted(refs.entityTypes)
	return e, nil
}

// PropertyTypeReferences are the property types of this entity type.
func (e *EntityType) PropertyTypeReferences() []VersionedURI { return e.propertyTypes }

// LinkTypeReferences are the link types entities of this type may have.
func (e *EntityType) LinkTypeReferences() []VersionedURI { return e.linkTypes }

// LinkTargetReferences are the entity types allowed as link destinations.
func (e *EntityType) LinkTargetReferences() []VersionedURI { return e.linkTargets }

func (e *EntityType) UnmarshalJSON(data []byte) error {
	parsed, err := ParseEntityType(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

func (e *EntityType) ResolveField(ctx context.Context, field query.PathSegment, rest []query.PathSegment, reader query.RecordReader) (query.Literal, bool, error) {
	switch field {
	case "propertyTypes":
		value, err := query.ResolveCollection(ctx, rest, reader, query.KindPropertyType, uriStrings(e.propertyTypes))
		return value, true, err
	case "linkTypes":
		value, err := query.ResolveCollection(ctx, rest, reader, query.KindLinkType, uriStrings(e.linkTypes))
		return value, true, err
	default:
		return query.Literal{}, false, nil
	}
}

type referenceCollector struct {
	dataTypes     map[VersionedURI]struct{}
	propertyTypes map[VersionedURI]struct{}
	entityTypes   map[VersionedURI]struct{}
}

func newReferenceCollector() *referenceCollector {
	return &referenceCollector{
		dataTypes:     make(map[VersionedURI]struct{}),
		propertyTypes: make(map[VersionedURI]struct{}),
		entityTypes:   make(map[VersionedURI]struct{}),
	}
}

// propertyValue walks one `oneOf` entry of a property type. References in
// nested `properties` objects are property types, any other reference is a
// data type.
func (c *referenceCollector) propertyValue(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	if ref, ok := obj["$ref"].(string); ok {
		return c.add(ref, c.dataTypes)
	}
	if properties, ok := obj["properties"].(map[string]any); ok {
		for _, p := range properties {
			if err := c.propertyReference(p); err != nil {
				return err
			}
		}
	}
	if items, ok := obj["items"].(map[string]any); ok {
		if oneOf, ok := items["oneOf"].([]any); ok {
			for _, v := range oneOf {
				if err := c.propertyValue(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// propertyReference handles `{"$ref": ...}` and `{"type": "array", "items": {"$ref": ...}}`.
func (c *referenceCollector) propertyReference(value any) error {
	return c.collect(value, c.propertyTypes)
}

// collect adds every `$ref` below value to into.
func (c *referenceCollector) collect(value any, into map[VersionedURI]struct{}) error {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			if key == "$ref" {
				ref, ok := item.(string)
				if !ok {
					return fmt.Errorf("`$ref` must be a string")
				}
				if err := c.add(ref, into); err != nil {
					return err
				}
				continue
			}
			if err := c.collect(item, into); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := c.collect(item, into); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *referenceCollector) add(ref string, into map[VersionedURI]struct{}) error {
	uri, err := ParseVersionedURI(ref)
	if err != nil {
		return fmt.Errorf("reference %w", err)
	}
	into[uri] = struct{}{}
	return nil
}

func (c *referenceCollector) sorted(set map[VersionedURI]struct{}) []VersionedURI {
	out := make([]VersionedURI, 0, len(set))
	for uri := range set {
		out = append(out, uri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func uriStrings(uris []VersionedURI) []string {
	out := make([]string, len(uris))
	for i, u := range uris {
		out[i] = u.String()
	}
	return out
}
