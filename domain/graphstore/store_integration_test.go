package graphstore_test

import (
	"encoding/json"
	"net/http"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/emergent-company/typegraph/domain/graphstore"
	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/internal/testutil"
	"github.com/emergent-company/typegraph/pkg/query"
)

const (
	textV1 = `{
		"kind": "dataType",
		"$id": "https://example.com/data-type/text/v/1",
		"title": "Text",
		"type": "string"
	}`

	textV2 = `{
		"kind": "dataType",
		"$id": "https://example.com/data-type/text/v/2",
		"title": "Text",
		"description": "An ordered sequence of characters",
		"type": "string"
	}`

	nameV1 = `{
		"kind": "propertyType",
		"$id": "https://example.com/property-type/name/v/1",
		"title": "Name",
		"oneOf": [{"$ref": "https://example.com/data-type/text/v/1"}]
	}`

	friendOfV1 = `{
		"kind": "linkType",
		"$id": "https://example.com/link-type/friend-of/v/1",
		"title": "Friend Of",
		"description": "Someone who has a shared bond of mutual affection"
	}`

	personV1 = `{
		"kind": "entityType",
		"$id": "https://example.com/entity-type/person/v/1",
		"title": "Person",
		"type": "object",
		"properties": {
			"https://example.com/property-type/name/": {"$ref": "https://example.com/property-type/name/v/1"}
		},
		"links": {
			"https://example.com/link-type/friend-of/v/1": {
				"type": "array",
				"items": {"oneOf": [{"$ref": "https://example.com/entity-type/person/v/1"}]}
			}
		}
	}`

	nameKey   = "https://example.com/property-type/name/"
	ageKey    = "https://example.com/property-type/age/"
	activeKey = "https://example.com/property-type/active/"
)

var (
	personID   = ontology.MustParseVersionedURI("https://example.com/entity-type/person/v/1")
	friendOfID = ontology.MustParseVersionedURI("https://example.com/link-type/friend-of/v/1")
)

// StoreSuite runs the graph store against a migrated PostgreSQL database.
type StoreSuite struct {
	testutil.BaseSuite
	store   *graphstore.Store
	account ontology.AccountID
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.SetDBSuffix("graphstore")
	s.BaseSuite.SetupSuite()
	s.SkipIfExternalServer("calls the store directly")
	s.store = s.Server.Store
}

func (s *StoreSuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.account = uuid.MustParse(s.AccountID)
}

func (s *StoreSuite) createDataType(schema string) ontology.Metadata {
	doc, err := ontology.ParseDataType([]byte(schema))
	s.Require().NoError(err)
	meta, err := s.store.CreateDataType(s.Ctx, doc, s.account, s.account)
	s.Require().NoError(err)
	return meta
}

// seedPeople stores the person ontology and two people, returning their ids.
func (s *StoreSuite) seedPeople() (alice, bob knowledge.EntityID) {
	s.createDataType(textV1)

	name, err := ontology.ParsePropertyType([]byte(nameV1))
	s.Require().NoError(err)
	_, err = s.store.CreatePropertyType(s.Ctx, name, s.account, s.account)
	s.Require().NoError(err)

	friendOf, err := ontology.ParseLinkType([]byte(friendOfV1))
	s.Require().NoError(err)
	_, err = s.store.CreateLinkType(s.Ctx, friendOf, s.account, s.account)
	s.Require().NoError(err)

	person, err := ontology.ParseEntityType([]byte(personV1))
	s.Require().NoError(err)
	_, err = s.store.CreateEntityType(s.Ctx, person, s.account, s.account)
	s.Require().NoError(err)

	a, err := s.store.CreateEntity(s.Ctx, knowledge.Entity{nameKey: "Alice"}, personID, s.account, s.account)
	s.Require().NoError(err)
	b, err := s.store.CreateEntity(s.Ctx, knowledge.Entity{nameKey: "Bob"}, personID, s.account, s.account)
	s.Require().NoError(err)
	return a.Identifier.EntityID, b.Identifier.EntityID
}

func (s *StoreSuite) TestCreateDataType_DuplicateBaseURI() {
	meta := s.createDataType(textV1)
	s.Equal("https://example.com/data-type/text/v/1", meta.Identifier.URI.String())

	doc, err := ontology.ParseDataType([]byte(textV1))
	s.Require().NoError(err)
	_, err = s.store.CreateDataType(s.Ctx, doc, s.account, s.account)
	s.ErrorIs(err, graphstore.ErrBaseURIAlreadyExists)
}

func (s *StoreSuite) TestUpdateDataType_UnknownBaseURI() {
	doc, err := ontology.ParseDataType([]byte(textV2))
	s.Require().NoError(err)
	_, err = s.store.UpdateDataType(s.Ctx, doc, s.account)
	s.ErrorIs(err, graphstore.ErrBaseURIDoesNotExist)
}

func (s *StoreSuite) TestUpdateDataType_LatestVersion() {
	s.createDataType(textV1)

	doc, err := ontology.ParseDataType([]byte(textV2))
	s.Require().NoError(err)
	_, err = s.store.UpdateDataType(s.Ctx, doc, s.account)
	s.Require().NoError(err)

	_, err = s.store.UpdateDataType(s.Ctx, doc, s.account)
	s.ErrorIs(err, graphstore.ErrVersionedURIAlreadyExists)

	latest, err := s.store.GetDataType(s.Ctx, graphstore.StructuralQuery[ontology.DataTypePath]{
		Filter: query.Equal(
			query.PathOperand(ontology.DataTypePath{Field: ontology.FieldVersion}),
			query.ParameterOperand[ontology.DataTypePath](query.Text(query.Latest)),
		),
	})
	s.Require().NoError(err)
	s.Require().Len(latest.Roots, 1)
	s.Equal(subgraph.OntologyID(doc.ID()), latest.Roots[0])

	all, err := s.store.GetDataType(s.Ctx, graphstore.StructuralQuery[ontology.DataTypePath]{
		Filter: query.Equal(
			query.PathOperand(ontology.DataTypePath{Field: ontology.FieldBaseURI}),
			query.ParameterOperand[ontology.DataTypePath](query.Text("https://example.com/data-type/text/")),
		),
	})
	s.Require().NoError(err)
	s.Len(all.Roots, 2)
}

func byVersionedURI(uri string) query.Filter[ontology.DataTypePath] {
	return query.Equal(
		query.PathOperand(ontology.DataTypePath{Field: ontology.FieldVersionedURI}),
		query.ParameterOperand[ontology.DataTypePath](query.Text(uri)),
	)
}

func (s *StoreSuite) TestCreateDataType_Boolean() {
	meta := s.createDataType(`{
		"kind": "dataType",
		"$id": "https://example.com/data-type/boolean/v/1",
		"title": "Boolean",
		"type": "boolean"
	}`)

	s.Equal("https://example.com/data-type/boolean/v/1", meta.Identifier.URI.String())
	s.Equal(s.account, meta.Identifier.OwnedByID)
	s.Equal(s.account, meta.CreatedByID)
	s.Equal(s.account, meta.UpdatedByID)
}

func (s *StoreSuite) TestGetDataType_ReturnsStoredDocument() {
	const emptyList = `{
		"kind": "dataType",
		"$id": "https://example.com/data-type/empty-list/v/1",
		"title": "Empty List",
		"type": "array",
		"const": []
	}`
	s.createDataType(emptyList)

	result, err := s.store.GetDataType(s.Ctx, graphstore.StructuralQuery[ontology.DataTypePath]{
		Filter: byVersionedURI("https://example.com/data-type/empty-list/v/1"),
	})
	s.Require().NoError(err)
	s.Require().Len(result.Roots, 1)

	record, ok := result.Vertices[result.Roots[0]].Inner.(ontology.DataTypeRecord)
	s.Require().True(ok)
	stored, err := json.Marshal(record.Inner)
	s.Require().NoError(err)
	s.JSONEq(emptyList, string(stored))
}

func (s *StoreSuite) TestGetDataType_EachVersionByID() {
	s.createDataType(textV1)
	v2, err := ontology.ParseDataType([]byte(textV2))
	s.Require().NoError(err)
	_, err = s.store.UpdateDataType(s.Ctx, v2, s.account)
	s.Require().NoError(err)

	for uri, want := range map[string]string{
		"https://example.com/data-type/text/v/1": textV1,
		"https://example.com/data-type/text/v/2": textV2,
	} {
		result, err := s.store.GetDataType(s.Ctx, graphstore.StructuralQuery[ontology.DataTypePath]{
			Filter: byVersionedURI(uri),
		})
		s.Require().NoError(err)
		s.Require().Len(result.Roots, 1, uri)
		s.Require().Len(result.Vertices, 1, uri)

		record := result.Vertices[result.Roots[0]].Inner.(ontology.DataTypeRecord)
		stored, err := json.Marshal(record.Inner)
		s.Require().NoError(err)
		s.JSONEq(want, string(stored), uri)
	}
}

func (s *StoreSuite) TestGetPropertyType_DataTypeDepth() {
	s.createDataType(textV1)
	name, err := ontology.ParsePropertyType([]byte(nameV1))
	s.Require().NoError(err)
	_, err = s.store.CreatePropertyType(s.Ctx, name, s.account, s.account)
	s.Require().NoError(err)

	nameVertex := subgraph.OntologyID(name.ID())
	textVertex := subgraph.OntologyID(ontology.MustParseVersionedURI("https://example.com/data-type/text/v/1"))
	byTitle := query.Equal(
		query.PathOperand(ontology.PropertyTypePath{Field: ontology.FieldTitle}),
		query.ParameterOperand[ontology.PropertyTypePath](query.Text("Name")),
	)

	shallow, err := s.store.GetPropertyType(s.Ctx, graphstore.StructuralQuery[ontology.PropertyTypePath]{
		Filter: byTitle,
	})
	s.Require().NoError(err)
	s.Contains(shallow.Vertices, nameVertex)
	s.NotContains(shallow.Vertices, textVertex)
	s.Empty(shallow.Edges)

	deep, err := s.store.GetPropertyType(s.Ctx, graphstore.StructuralQuery[ontology.PropertyTypePath]{
		Filter:             byTitle,
		GraphResolveDepths: subgraph.GraphResolveDepths{DataTypeResolveDepth: 1},
	})
	s.Require().NoError(err)
	s.Len(deep.Vertices, 2)
	s.Contains(deep.Vertices, textVertex)
	s.Len(deep.Edges[nameVertex], 1)
	s.True(deep.Edges.Contains(nameVertex, subgraph.OutwardEdge{
		EdgeKind:    subgraph.EdgeReferences,
		Destination: textVertex,
	}))
	s.Equal(1, deep.Depths.DataTypeResolveDepth)
}

func (s *StoreSuite) TestGetEntity_FollowsLinks() {
	alice, bob := s.seedPeople()

	link := knowledge.Link{SourceEntityID: alice, TargetEntityID: bob, LinkTypeID: friendOfID}
	s.Require().NoError(s.store.CreateLink(s.Ctx, link, s.account, s.account))

	result, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{
		Filter: query.Equal(
			query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldProperties, PropertyKey: nameKey}),
			query.ParameterOperand[knowledge.EntityPath](query.Text("Alice")),
		),
		GraphResolveDepths: subgraph.GraphResolveDepths{
			LinkResolveDepth:             1,
			LinkTargetEntityResolveDepth: 1,
		},
	})
	s.Require().NoError(err)

	s.Equal([]subgraph.GraphElementIdentifier{subgraph.EntityID(alice)}, result.Roots)
	s.Contains(result.Vertices, subgraph.EntityID(bob))
	s.Contains(result.Vertices, subgraph.LinkID(link.ID()))
	s.True(result.Edges.Contains(subgraph.EntityID(alice), subgraph.OutwardEdge{
		EdgeKind:    subgraph.EdgeHasLink,
		Destination: subgraph.LinkID(link.ID()),
	}))
}

func (s *StoreSuite) TestUpdateEntity_KeepsHistory() {
	alice, _ := s.seedPeople()

	meta, err := s.store.UpdateEntity(s.Ctx, alice, knowledge.Entity{nameKey: "Alicia"}, personID, s.account)
	s.Require().NoError(err)
	s.Equal(alice, meta.Identifier.EntityID)

	byID := query.Equal(
		query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldID}),
		query.ParameterOperand[knowledge.EntityPath](query.Text(alice.String())),
	)

	versions, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{Filter: byID})
	s.Require().NoError(err)
	s.Len(versions.Roots, 1, "versions share one entity identifier")

	_, err = s.store.UpdateEntity(s.Ctx, uuid.New(), knowledge.Entity{nameKey: "Nobody"}, personID, s.account)
	s.ErrorIs(err, graphstore.ErrEntityDoesNotExist)
}

func (s *StoreSuite) TestLinkLifecycle() {
	alice, bob := s.seedPeople()
	link := knowledge.Link{SourceEntityID: alice, TargetEntityID: bob, LinkTypeID: friendOfID}

	s.Require().NoError(s.store.CreateLink(s.Ctx, link, s.account, s.account))
	s.ErrorIs(s.store.CreateLink(s.Ctx, link, s.account, s.account), graphstore.ErrLinkAlreadyExists)

	s.Require().NoError(s.store.RemoveLink(s.Ctx, link, s.account))
	s.ErrorIs(s.store.RemoveLink(s.Ctx, link, s.account), graphstore.ErrLinkRemoval)

	var history []graphstore.LinkHistory
	s.Require().NoError(s.TestDB.DB.NewSelect().Model(&history).Scan(s.Ctx))
	s.Require().Len(history, 1)
	s.Equal(alice, history[0].SourceEntityID)
	s.Equal(bob, history[0].TargetEntityID)
	s.Equal(s.account, history[0].RemovedByID)
	s.False(history[0].RemovedAt.IsZero())

	live, err := s.store.GetLink(s.Ctx, graphstore.LinkQuery{Query: query.LiteralExpr(query.BoolLiteral(true))})
	s.Require().NoError(err)
	s.Empty(live.Roots)

	s.NoError(s.store.CreateLink(s.Ctx, link, s.account, s.account), "a removed link can be recreated")
}

// The same filter tree must select the same entities whether it is compiled
// to SQL or evaluated against the records in memory.
func (s *StoreSuite) TestEntityFilter_CompiledMatchesInterpreted() {
	s.seedPeople()
	_, err := s.store.InsertEntities(s.Ctx, []knowledge.Entity{
		{nameKey: "Carol", ageKey: 30, activeKey: true},
		{nameKey: "Dave", ageKey: 41.5, activeKey: false},
	}, personID, s.account)
	s.Require().NoError(err)

	name := query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldProperties, PropertyKey: nameKey})
	age := query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldProperties, PropertyKey: ageKey})
	active := query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldProperties, PropertyKey: activeKey})
	text := func(v string) *query.FilterExpression[knowledge.EntityPath] {
		return query.ParameterOperand[knowledge.EntityPath](query.Text(v))
	}
	number := func(v float64) *query.FilterExpression[knowledge.EntityPath] {
		return query.ParameterOperand[knowledge.EntityPath](query.Number(v))
	}
	boolean := func(v bool) *query.FilterExpression[knowledge.EntityPath] {
		return query.ParameterOperand[knowledge.EntityPath](query.Boolean(v))
	}

	everyone, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{
		Filter: query.Equal(
			query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldVersion}),
			text(query.Latest),
		),
	})
	s.Require().NoError(err)
	s.Require().Len(everyone.Roots, 4)

	filters := map[string]query.Filter[knowledge.EntityPath]{
		"equal":             query.Equal(name, text("Alice")),
		"not equal":         query.NotEqual(name, text("Bob")),
		"any":               query.Any(query.Equal(name, text("Carol")), query.Equal(text("Dave"), name)),
		"all":               query.All(query.NotEqual(name, text("Alice")), query.NotEqual(name, text("Erin"))),
		"none":              query.Equal(name, text("Mallory")),
		"whole number":      query.Equal(age, number(30)),
		"fractional number": query.Equal(number(41.5), age),
		"number as text":    query.Equal(age, text("30")),
		"boolean":           query.Equal(active, boolean(false)),
		"mixed kinds":       query.Any(query.Equal(active, boolean(true)), query.Equal(age, number(41.5))),
	}

	for label, filter := range filters {
		s.Run(label, func() {
			compiled, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{Filter: filter})
			s.Require().NoError(err)

			s.Equal(s.interpretedRoots(everyone, filter), rootStrings(compiled.Roots))
		})
	}
}

// interpretedRoots runs filter through the interpreter over the roots of all.
func (s *StoreSuite) interpretedRoots(all *subgraph.Subgraph, filter query.Filter[knowledge.EntityPath]) []string {
	expression := query.FilterToExpression(filter)
	var matched []string
	for _, root := range all.Roots {
		entity := all.Vertices[root].Inner.(knowledge.PersistedEntity)
		ok, err := expression.Matches(s.Ctx, entity, s.store)
		s.Require().NoError(err)
		if ok {
			matched = append(matched, root.String())
		}
	}
	sort.Strings(matched)
	return matched
}

// Entities without the property drop out of a compiled NotEqual, since SQL
// compares against NULL, but the interpreter treats the missing value as
// null and keeps them.
func (s *StoreSuite) TestEntityFilter_MissingPropertyNullSemantics() {
	alice, bob := s.seedPeople()
	ids, err := s.store.InsertEntities(s.Ctx, []knowledge.Entity{
		{nameKey: "Carol", ageKey: 30},
		{nameKey: "Dave", ageKey: 41.5},
	}, personID, s.account)
	s.Require().NoError(err)
	s.Require().Len(ids, 2)
	dave := ids[1]

	everyone, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{
		Filter: query.Equal(
			query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldVersion}),
			query.ParameterOperand[knowledge.EntityPath](query.Text(query.Latest)),
		),
	})
	s.Require().NoError(err)

	notThirty := query.NotEqual(
		query.PathOperand(knowledge.EntityPath{Field: knowledge.FieldProperties, PropertyKey: ageKey}),
		query.ParameterOperand[knowledge.EntityPath](query.Number(30)),
	)

	compiled, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{Filter: notThirty})
	s.Require().NoError(err)
	s.Equal(entityRoots(dave), rootStrings(compiled.Roots))
	s.Equal(entityRoots(alice, bob, dave), s.interpretedRoots(everyone, notThirty))
}

func entityRoots(ids ...knowledge.EntityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = subgraph.EntityID(id).String()
	}
	sort.Strings(out)
	return out
}

func rootStrings(roots []subgraph.GraphElementIdentifier) []string {
	var out []string
	for _, r := range roots {
		out = append(out, r.String())
	}
	sort.Strings(out)
	return out
}

func (s *StoreSuite) TestInsertEntities_Bulk() {
	s.seedPeople()

	ids, err := s.store.InsertEntities(s.Ctx, []knowledge.Entity{
		{nameKey: "Carol"},
		{nameKey: "Dave"},
		{nameKey: "Erin"},
	}, personID, s.account)
	s.Require().NoError(err)
	s.Len(ids, 3)

	result, err := s.store.GetEntity(s.Ctx, graphstore.StructuralQuery[knowledge.EntityPath]{
		Filter: query.Equal(
			query.PathOperand(knowledge.EntityPath{
				Field:      knowledge.FieldType,
				EntityType: &ontology.EntityTypePath{Field: ontology.FieldVersionedURI},
			}),
			query.ParameterOperand[knowledge.EntityPath](query.Text(personID.String())),
		),
	})
	s.Require().NoError(err)
	s.Len(result.Roots, 5)
}

func (s *StoreSuite) TestHTTP_DataTypeRoundTrip() {
	created, err := s.Client.CreateType("data-types", textV1, s.AccountID)
	s.Require().NoError(err)
	s.NotEmpty(created["identifier"])

	resp := s.Client.POST("/api/data-types", testutil.WithJSONBody(map[string]any{
		"schema":    json.RawMessage(textV1),
		"accountId": s.AccountID,
	}))
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp = s.Client.POST("/api/data-types/query", testutil.WithJSONBody(map[string]any{
		"filter": map[string]any{
			"equal": []any{
				map[string]any{"path": []string{"title"}},
				map[string]any{"parameter": "Text"},
			},
		},
		"graphResolveDepths": map[string]any{},
	}))
	s.Require().Equal(http.StatusOK, resp.StatusCode, resp.String())

	var result subgraph.Subgraph
	s.Require().NoError(resp.JSON(&result))
	s.Len(result.Roots, 1)
}

func (s *StoreSuite) TestHTTP_InvalidRequests() {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{
			name:   "missing schema",
			path:   "/api/data-types",
			body:   map[string]any{"accountId": s.AccountID},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing account",
			path:   "/api/property-types",
			body:   map[string]any{"schema": json.RawMessage(nameV1)},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown filter operation",
			path:   "/api/entities/query",
			body:   map[string]any{"filter": map[string]any{"greater": []any{}}},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp := s.Client.POST(tt.path, testutil.WithJSONBody(tt.body))
			s.Equal(tt.status, resp.StatusCode, resp.String())
		})
	}
}
