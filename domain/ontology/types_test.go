package ontology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	textDataTypeJSON = `{
		"kind": "dataType",
		"$id": "https://example.com/data-type/text/v/1",
		"title": "Text",
		"description": "An ordered sequence of characters",
		"type": "string"
	}`

	namePropertyTypeJSON = `{
		"kind": "propertyType",
		"$id": "https://example.com/property-type/name/v/1",
		"title": "Name",
		"oneOf": [{"$ref": "https://example.com/data-type/text/v/1"}]
	}`

	addressPropertyTypeJSON = `{
		"kind": "propertyType",
		"$id": "https://example.com/property-type/address/v/1",
		"title": "Address",
		"oneOf": [
			{
				"type": "object",
				"properties": {
					"https://example.com/property-type/street/": {"$ref": "https://example.com/property-type/street/v/1"},
					"https://example.com/property-type/name/": {
						"type": "array",
						"items": {"$ref": "https://example.com/property-type/name/v/1"}
					}
				}
			},
			{
				"type": "array",
				"items": {"oneOf": [{"$ref": "https://example.com/data-type/text/v/1"}, {"$ref": "https://example.com/data-type/number/v/1"}]}
			}
		]
	}`

	friendLinkTypeJSON = `{
		"kind": "linkType",
		"$id": "https://example.com/link-type/friend-of/v/1",
		"title": "Friend Of",
		"description": "Someone who has a shared bond of mutual affection",
		"relatedKeywords": ["friend", "companion"]
	}`

	personEntityTypeJSON = `{
		"kind": "entityType",
		"$id": "https://example.com/entity-type/person/v/1",
		"title": "Person",
		"type": "object",
		"properties": {
			"https://example.com/property-type/name/": {"$ref": "https://example.com/property-type/name/v/1"},
			"https://example.com/property-type/address/": {"type": "array", "items": {"$ref": "https://example.com/property-type/address/v/1"}}
		},
		"links": {
			"https://example.com/link-type/friend-of/v/1": {
				"type": "array",
				"items": {"oneOf": [{"$ref": "https://example.com/entity-type/person/v/1"}]},
				"ordered": false
			},
			"https://example.com/link-type/owns/v/1": {"$ref": "https://example.com/entity-type/book/v/1"}
		}
	}`
)

func uris(t *testing.T, raw ...string) []VersionedURI {
	t.Helper()
	out := make([]VersionedURI, len(raw))
	for i, r := range raw {
		uri, err := ParseVersionedURI(r)
		require.NoError(t, err)
		out[i] = uri
	}
	return out
}

func TestParseDataType(t *testing.T) {
	dataType, err := ParseDataType([]byte(textDataTypeJSON))
	require.NoError(t, err)

	assert.Equal(t, KindDataType, dataType.Kind())
	assert.Equal(t, "https://example.com/data-type/text/v/1", dataType.ID().String())
	assert.Equal(t, "Text", dataType.Title())
	require.NotNil(t, dataType.Description())
	assert.Equal(t, "An ordered sequence of characters", *dataType.Description())
	assert.Equal(t, "string", dataType.JSONType())

	out, err := json.Marshal(dataType)
	require.NoError(t, err)
	assert.JSONEq(t, textDataTypeJSON, string(out))
}

func TestParseDataType_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "not an object", input: `[]`, wantErr: "must be a JSON object"},
		{name: "wrong kind", input: `{"kind":"linkType","$id":"https://example.com/a/v/1","title":"A","type":"string"}`, wantErr: `expected kind "dataType"`},
		{name: "missing id", input: `{"title":"A","type":"string"}`, wantErr: "missing `$id`"},
		{name: "invalid id", input: `{"$id":"https://example.com/a/","title":"A","type":"string"}`, wantErr: "missing the version suffix"},
		{name: "missing title", input: `{"$id":"https://example.com/a/v/1","type":"string"}`, wantErr: "missing `title`"},
		{name: "missing type", input: `{"$id":"https://example.com/a/v/1","title":"A"}`, wantErr: "missing `type`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataType([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsePropertyType_References(t *testing.T) {
	name, err := ParsePropertyType([]byte(namePropertyTypeJSON))
	require.NoError(t, err)
	assert.Equal(t, uris(t, "https://example.com/data-type/text/v/1"), name.DataTypeReferences())
	assert.Empty(t, name.PropertyTypeReferences())

	address, err := ParsePropertyType([]byte(addressPropertyTypeJSON))
	require.NoError(t, err)
	assert.Equal(t, uris(t,
		"https://example.com/data-type/number/v/1",
		"https://example.com/data-type/text/v/1",
	), address.DataTypeReferences())
	assert.Equal(t, uris(t,
		"https://example.com/property-type/name/v/1",
		"https://example.com/property-type/street/v/1",
	), address.PropertyTypeReferences())
}

func TestParsePropertyType_RequiresOneOf(t *testing.T) {
	_, err := ParsePropertyType([]byte(`{"$id":"https://example.com/p/v/1","title":"P"}`))
	assert.ErrorContains(t, err, "must define `oneOf`")

	_, err = ParsePropertyType([]byte(`{"$id":"https://example.com/p/v/1","title":"P","oneOf":[{"$ref":"bad"}]}`))
	assert.ErrorContains(t, err, "reference versioned URI")
}

func TestParseLinkType(t *testing.T) {
	linkType, err := ParseLinkType([]byte(friendLinkTypeJSON))
	require.NoError(t, err)
	assert.Equal(t, KindLinkType, linkType.Kind())
	assert.Equal(t, []string{"friend", "companion"}, linkType.RelatedKeywords())
}

func TestParseEntityType_References(t *testing.T) {
	person, err := ParseEntityType([]byte(personEntityTypeJSON))
	require.NoError(t, err)

	assert.Equal(t, uris(t,
		"https://example.com/property-type/address/v/1",
		"https://example.com/property-type/name/v/1",
	), person.PropertyTypeReferences())
	assert.Equal(t, uris(t,
		"https://example.com/link-type/friend-of/v/1",
		"https://example.com/link-type/owns/v/1",
	), person.LinkTypeReferences())
	assert.Equal(t, uris(t,
		"https://example.com/entity-type/book/v/1",
		"https://example.com/entity-type/person/v/1",
	), person.LinkTargetReferences())
}

func TestParseEntityType_InvalidLinkKey(t *testing.T) {
	_, err := ParseEntityType([]byte(`{
		"$id": "https://example.com/entity-type/a/v/1",
		"title": "A",
		"links": {"friend": {}}
	}`))
	assert.ErrorContains(t, err, "link versioned URI")
}

func TestTypes_UnmarshalJSON(t *testing.T) {
	var record struct {
		DataType     DataType     `json:"dataType"`
		PropertyType PropertyType `json:"propertyType"`
		LinkType     LinkType     `json:"linkType"`
		EntityType   EntityType   `json:"entityType"`
	}
	body := `{"dataType":` + textDataTypeJSON +
		`,"propertyType":` + namePropertyTypeJSON +
		`,"linkType":` + friendLinkTypeJSON +
		`,"entityType":` + personEntityTypeJSON + `}`
	require.NoError(t, json.Unmarshal([]byte(body), &record))

	assert.Equal(t, "Text", record.DataType.Title())
	assert.Equal(t, "Name", record.PropertyType.Title())
	assert.Equal(t, "Friend Of", record.LinkType.Title())
	assert.Equal(t, "Person", record.EntityType.Title())
	assert.Nil(t, record.EntityType.Description())
}
