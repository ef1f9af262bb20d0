package graphstore

import (
	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
)

// Unresolved is the depth recorded for a value that was inserted without
// being expanded, typically a query root. It is below every real depth.
const Unresolved = -1

type resolved[V any] struct {
	value V
	depth int
}

// DependencyMap memoizes values by key together with the deepest depth they
// were expanded to.
type DependencyMap[K comparable, V any] struct {
	entries map[K]*resolved[V]
}

func NewDependencyMap[K comparable, V any]() *DependencyMap[K, V] {
	return &DependencyMap[K, V]{entries: make(map[K]*resolved[V])}
}

// Insert stores value under key at depth. The returned bool reports whether
// the caller must expand the value: true for a new key, or when depth exceeds
// the depth stored so far, which is then raised. The returned value is the
// stored one.
func (m *DependencyMap[K, V]) Insert(key K, depth int, value V) (V, bool) {
	entry, ok := m.entries[key]
	if !ok {
		m.entries[key] = &resolved[V]{value: value, depth: depth}
		return value, true
	}
	return entry.value, entry.raise(depth)
}

// InsertWith is Insert with a lazily fetched value. fetch runs only when the
// key is not stored yet.
func (m *DependencyMap[K, V]) InsertWith(key K, depth int, fetch func() (V, error)) (V, bool, error) {
	entry, ok := m.entries[key]
	if ok {
		return entry.value, entry.raise(depth), nil
	}
	value, err := fetch()
	if err != nil {
		var zero V
		return zero, false, err
	}
	m.entries[key] = &resolved[V]{value: value, depth: depth}
	return value, true, nil
}

// Depth returns the depth key was expanded to.
func (m *DependencyMap[K, V]) Depth(key K) (int, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return 0, false
	}
	return entry.depth, true
}

func (m *DependencyMap[K, V]) Len() int { return len(m.entries) }

// Values returns the stored values in no particular order.
func (m *DependencyMap[K, V]) Values() []V {
	values := make([]V, 0, len(m.entries))
	for _, entry := range m.entries {
		values = append(values, entry.value)
	}
	return values
}

func (r *resolved[V]) raise(depth int) bool {
	if depth > r.depth {
		r.depth = depth
		return true
	}
	return false
}

// Keyed is a value that acts as its own identity.
type Keyed[K comparable] interface {
	Key() K
}

// DependencySet is a DependencyMap for values identified by their own key.
type DependencySet[K comparable, T Keyed[K]] struct {
	values DependencyMap[K, T]
}

func NewDependencySet[K comparable, T Keyed[K]]() *DependencySet[K, T] {
	return &DependencySet[K, T]{values: DependencyMap[K, T]{entries: make(map[K]*resolved[T])}}
}

// Insert follows the rule of DependencyMap.Insert.
func (s *DependencySet[K, T]) Insert(value T, depth int) (T, bool) {
	return s.values.Insert(value.Key(), depth, value)
}

func (s *DependencySet[K, T]) Len() int { return s.values.Len() }

func (s *DependencySet[K, T]) Values() []T { return s.values.Values() }

// dependencyContext is the working state of one root's resolution. It is
// owned by a single goroutine and consumed once by intoSubgraph.
type dependencyContext struct {
	reader dependencyReader
	// depths is the bundle the caller asked for; traversal passes
	// decremented copies down instead of changing it.
	depths subgraph.GraphResolveDepths
	edges  subgraph.Edges

	dataTypes     *DependencyMap[ontology.VersionedURI, ontology.DataTypeRecord]
	propertyTypes *DependencyMap[ontology.VersionedURI, ontology.PropertyTypeRecord]
	linkTypes     *DependencyMap[ontology.VersionedURI, ontology.LinkTypeRecord]
	entityTypes   *DependencyMap[ontology.VersionedURI, ontology.EntityTypeRecord]
	entities      *DependencyMap[knowledge.EntityID, knowledge.PersistedEntity]
	links         *DependencySet[knowledge.LinkID, knowledge.PersistedLink]
}

func newDependencyContext(reader dependencyReader, depths subgraph.GraphResolveDepths) *dependencyContext {
	return &dependencyContext{
		reader:        reader,
		depths:        depths,
		edges:         make(subgraph.Edges),
		dataTypes:     NewDependencyMap[ontology.VersionedURI, ontology.DataTypeRecord](),
		propertyTypes: NewDependencyMap[ontology.VersionedURI, ontology.PropertyTypeRecord](),
		linkTypes:     NewDependencyMap[ontology.VersionedURI, ontology.LinkTypeRecord](),
		entityTypes:   NewDependencyMap[ontology.VersionedURI, ontology.EntityTypeRecord](),
		entities:      NewDependencyMap[knowledge.EntityID, knowledge.PersistedEntity](),
		links:         NewDependencySet[knowledge.LinkID, knowledge.PersistedLink](),
	}
}

// intoSubgraph flattens the context into a subgraph with the given roots.
func (dc *dependencyContext) intoSubgraph(roots []subgraph.GraphElementIdentifier) *subgraph.Subgraph {
	s := subgraph.New(dc.depths)
	s.Roots = append(s.Roots, roots...)
	s.Edges = dc.edges

	for _, r := range dc.dataTypes.Values() {
		s.Vertices[subgraph.OntologyID(r.URI())] = subgraph.DataTypeVertex(r)
	}
	for _, r := range dc.propertyTypes.Values() {
		s.Vertices[subgraph.OntologyID(r.URI())] = subgraph.PropertyTypeVertex(r)
	}
	for _, r := range dc.linkTypes.Values() {
		s.Vertices[subgraph.OntologyID(r.URI())] = subgraph.LinkTypeVertex(r)
	}
	for _, r := range dc.entityTypes.Values() {
		s.Vertices[subgraph.OntologyID(r.URI())] = subgraph.EntityTypeVertex(r)
	}
	for _, e := range dc.entities.Values() {
		s.Vertices[subgraph.EntityID(e.ID())] = subgraph.EntityVertex(e)
	}
	for _, l := range dc.links.Values() {
		s.Vertices[subgraph.LinkID(l.Key())] = subgraph.LinkVertex(l)
	}
	return s
}
