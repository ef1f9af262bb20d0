package subgraph

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
)

var (
	textURI   = ontology.MustParseVersionedURI("https://example.com/data-type/text/v/1")
	nameURI   = ontology.MustParseVersionedURI("https://example.com/property-type/name/v/1")
	friendURI = ontology.MustParseVersionedURI("https://example.com/link-type/friend-of/v/1")
)

func TestGraphResolveDepths_Validate(t *testing.T) {
	assert.NoError(t, GraphResolveDepths{}.Validate(0))
	assert.NoError(t, GraphResolveDepths{DataTypeResolveDepth: 255}.Validate(0))

	err := GraphResolveDepths{LinkResolveDepth: -1}.Validate(0)
	assert.EqualError(t, err, "linkResolveDepth must not be negative, got -1")

	err = GraphResolveDepths{EntityTypeResolveDepth: 4}.Validate(3)
	assert.EqualError(t, err, "entityTypeResolveDepth must be at most 3, got 4")

	err = GraphResolveDepths{PropertyTypeResolveDepth: 256}.Validate(1000)
	assert.EqualError(t, err, "propertyTypeResolveDepth must be at most 255, got 256")
}

func TestGraphResolveDepths_JSON(t *testing.T) {
	var depths GraphResolveDepths
	require.NoError(t, json.Unmarshal([]byte(`{
		"dataTypeResolveDepth": 1,
		"propertyTypeResolveDepth": 2,
		"linkTypeResolveDepth": 0,
		"entityTypeResolveDepth": 3,
		"linkResolveDepth": 4,
		"linkTargetEntityResolveDepth": 5
	}`), &depths))
	assert.Equal(t, GraphResolveDepths{
		DataTypeResolveDepth:         1,
		PropertyTypeResolveDepth:     2,
		EntityTypeResolveDepth:       3,
		LinkResolveDepth:             4,
		LinkTargetEntityResolveDepth: 5,
	}, depths)
}

func TestGraphElementIdentifier_Text(t *testing.T) {
	entity := uuid.MustParse("6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00")
	target := uuid.MustParse("0a9b8c7d-6e5f-4a3b-8c1d-0e9f8a7b6c5d")

	tests := []struct {
		name string
		id   GraphElementIdentifier
		text string
	}{
		{name: "ontology", id: OntologyID(textURI), text: "https://example.com/data-type/text/v/1"},
		{name: "entity", id: EntityID(entity), text: "6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00"},
		{
			name: "link",
			id:   LinkID(knowledge.LinkID{SourceEntityID: entity, TargetEntityID: target, LinkTypeID: friendURI}),
			text: "link:6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00:0a9b8c7d-6e5f-4a3b-8c1d-0e9f8a7b6c5d:https://example.com/link-type/friend-of/v/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.id.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))

			parsed, err := ParseGraphElementIdentifier(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.id, parsed)
		})
	}

	_, err := GraphElementIdentifier{}.MarshalText()
	assert.Error(t, err)

	_, err = ParseGraphElementIdentifier("link:nope")
	assert.ErrorContains(t, err, "invalid link identifier")

	_, err = ParseGraphElementIdentifier("neither")
	assert.ErrorContains(t, err, "invalid graph element identifier")
}

func TestEdges(t *testing.T) {
	edges := make(Edges)
	reference := OutwardEdge{EdgeKind: EdgeReferences, Destination: OntologyID(textURI)}

	assert.True(t, edges.Insert(OntologyID(nameURI), reference))
	assert.False(t, edges.Insert(OntologyID(nameURI), reference))
	assert.True(t, edges.Contains(OntologyID(nameURI), reference))
	assert.False(t, edges.Contains(OntologyID(textURI), reference))
	assert.Equal(t, 1, edges.Len())

	data, err := json.Marshal(edges)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"https://example.com/property-type/name/v/1": [
			{"edgeKind": "REFERENCES", "destination": "https://example.com/data-type/text/v/1"}
		]
	}`, string(data))

	var decoded Edges
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, edges, decoded)
}

func TestSubgraph_Merge(t *testing.T) {
	depths := GraphResolveDepths{DataTypeResolveDepth: 1}
	entityA, entityB := uuid.New(), uuid.New()

	first := New(depths)
	first.Roots = append(first.Roots, EntityID(entityA))
	first.Vertices[EntityID(entityA)] = EntityVertex(knowledge.PersistedEntity{Inner: knowledge.Entity{"a": "1"}})
	first.Vertices[OntologyID(textURI)] = Vertex{Kind: VertexDataType}
	first.Edges.Insert(EntityID(entityA), OutwardEdge{EdgeKind: EdgeHasType, Destination: OntologyID(textURI)})

	second := New(depths)
	second.Roots = append(second.Roots, EntityID(entityB), EntityID(entityA))
	second.Vertices[EntityID(entityB)] = EntityVertex(knowledge.PersistedEntity{Inner: knowledge.Entity{"b": "2"}})
	second.Vertices[OntologyID(textURI)] = Vertex{Kind: VertexDataType}
	second.Edges.Insert(EntityID(entityA), OutwardEdge{EdgeKind: EdgeHasType, Destination: OntologyID(textURI)})
	second.Edges.Insert(EntityID(entityB), OutwardEdge{EdgeKind: EdgeHasType, Destination: OntologyID(textURI)})

	first.Merge(second)
	first.Merge(nil)

	assert.Equal(t, []GraphElementIdentifier{EntityID(entityA), EntityID(entityB)}, first.Roots)
	assert.Len(t, first.Vertices, 3)
	assert.Equal(t, 2, first.Edges.Len())
	assert.Equal(t, depths, first.Depths)
}

func TestSubgraph_JSON(t *testing.T) {
	entity := uuid.MustParse("6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00")
	s := New(GraphResolveDepths{LinkResolveDepth: 1})
	s.Roots = append(s.Roots, EntityID(entity))
	s.Vertices[EntityID(entity)] = EntityVertex(knowledge.PersistedEntity{Inner: knowledge.Entity{"name": "Alice"}})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{"6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00"}, decoded["roots"])

	vertex := decoded["vertices"].(map[string]any)["6b2e1c4e-0f4a-4b8e-9d7e-2c0a5d3e1f00"].(map[string]any)
	assert.Equal(t, "entity", vertex["kind"])
	assert.Equal(t, map[string]any{"name": "Alice"}, vertex["inner"].(map[string]any)["inner"])
	assert.Equal(t, float64(1), decoded["depths"].(map[string]any)["linkResolveDepth"])
}
