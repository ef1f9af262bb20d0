package subgraph

import (
	"encoding/json"
	"sort"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
)

// VertexKind tags the record held by a vertex.
type VertexKind string

const (
	VertexDataType     VertexKind = "dataType"
	VertexPropertyType VertexKind = "propertyType"
	VertexLinkType     VertexKind = "linkType"
	VertexEntityType   VertexKind = "entityType"
	VertexEntity       VertexKind = "entity"
	VertexLink         VertexKind = "link"
)

// Vertex is one record of a subgraph. Inner holds an ontology record, a
// knowledge.PersistedEntity or a knowledge.PersistedLink depending on Kind.
type Vertex struct {
	Kind  VertexKind `json:"kind"`
	Inner any        `json:"inner"`
}

func DataTypeVertex(r ontology.DataTypeRecord) Vertex {
	return Vertex{Kind: VertexDataType, Inner: r}
}

func PropertyTypeVertex(r ontology.PropertyTypeRecord) Vertex {
	return Vertex{Kind: VertexPropertyType, Inner: r}
}

func LinkTypeVertex(r ontology.LinkTypeRecord) Vertex {
	return Vertex{Kind: VertexLinkType, Inner: r}
}

func EntityTypeVertex(r ontology.EntityTypeRecord) Vertex {
	return Vertex{Kind: VertexEntityType, Inner: r}
}

func EntityVertex(e knowledge.PersistedEntity) Vertex {
	return Vertex{Kind: VertexEntity, Inner: e}
}

func LinkVertex(l knowledge.PersistedLink) Vertex {
	return Vertex{Kind: VertexLink, Inner: l}
}

// EdgeKind is the relation an edge stands for.
type EdgeKind string

const (
	// EdgeReferences links an ontology type to a type its schema references.
	EdgeReferences EdgeKind = "REFERENCES"
	// EdgeHasType links an entity or a link to its type.
	EdgeHasType EdgeKind = "HAS_TYPE"
	// EdgeHasLink links an entity to one of its outgoing links.
	EdgeHasLink EdgeKind = "HAS_LINK"
	// EdgeHasDestination links a link to its target entity.
	EdgeHasDestination EdgeKind = "HAS_DESTINATION"
)

type OutwardEdge struct {
	EdgeKind    EdgeKind               `json:"edgeKind"`
	Destination GraphElementIdentifier `json:"destination"`
}

// Edges maps a source vertex to the set of its outward edges.
type Edges map[GraphElementIdentifier]map[OutwardEdge]struct{}

// Insert adds an edge and reports whether it was new.
func (e Edges) Insert(source GraphElementIdentifier, edge OutwardEdge) bool {
	set, ok := e[source]
	if !ok {
		set = make(map[OutwardEdge]struct{})
		e[source] = set
	}
	if _, exists := set[edge]; exists {
		return false
	}
	set[edge] = struct{}{}
	return true
}

// Contains reports whether the edge exists.
func (e Edges) Contains(source GraphElementIdentifier, edge OutwardEdge) bool {
	_, ok := e[source][edge]
	return ok
}

// Len is the number of edges across all sources.
func (e Edges) Len() int {
	n := 0
	for _, set := range e {
		n += len(set)
	}
	return n
}

// Extend adds every edge of other.
func (e Edges) Extend(other Edges) {
	for source, set := range other {
		for edge := range set {
			e.Insert(source, edge)
		}
	}
}

// MarshalJSON renders each edge set as a list ordered by kind and destination.
func (e Edges) MarshalJSON() ([]byte, error) {
	out := make(map[string][]OutwardEdge, len(e))
	for source, set := range e {
		edges := make([]OutwardEdge, 0, len(set))
		for edge := range set {
			edges = append(edges, edge)
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].EdgeKind != edges[j].EdgeKind {
				return edges[i].EdgeKind < edges[j].EdgeKind
			}
			return edges[i].Destination.String() < edges[j].Destination.String()
		})
		out[source.String()] = edges
	}
	return json.Marshal(out)
}

func (e *Edges) UnmarshalJSON(data []byte) error {
	var raw map[GraphElementIdentifier][]OutwardEdge
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	edges := make(Edges, len(raw))
	for source, list := range raw {
		for _, edge := range list {
			edges.Insert(source, edge)
		}
	}
	*e = edges
	return nil
}

// Subgraph is the result of a structural query.
type Subgraph struct {
	Roots    []GraphElementIdentifier          `json:"roots"`
	Vertices map[GraphElementIdentifier]Vertex `json:"vertices"`
	Edges    Edges                             `json:"edges"`
	Depths   GraphResolveDepths                `json:"depths"`
}

// New returns an empty subgraph for depths.
func New(depths GraphResolveDepths) *Subgraph {
	return &Subgraph{
		Roots:    []GraphElementIdentifier{},
		Vertices: make(map[GraphElementIdentifier]Vertex),
		Edges:    make(Edges),
		Depths:   depths,
	}
}

// Merge unions other into s. Roots keep their first-seen order.
func (s *Subgraph) Merge(other *Subgraph) {
	if other == nil {
		return
	}
	seen := make(map[GraphElementIdentifier]struct{}, len(s.Roots))
	for _, root := range s.Roots {
		seen[root] = struct{}{}
	}
	for _, root := range other.Roots {
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		s.Roots = append(s.Roots, root)
	}

	if s.Vertices == nil {
		s.Vertices = make(map[GraphElementIdentifier]Vertex, len(other.Vertices))
	}
	for id, vertex := range other.Vertices {
		if _, ok := s.Vertices[id]; !ok {
			s.Vertices[id] = vertex
		}
	}

	if s.Edges == nil {
		s.Edges = make(Edges)
	}
	s.Edges.Extend(other.Edges)
}
