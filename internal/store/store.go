// Package store holds the graph storage shared by field dependency ordering
// and the field graph drawer.
package store

import (
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// CustomStore is a graph.Store whose vertex properties can be edited in place
// and which answers cycle checks itself.
type CustomStore[K comparable, T any] interface {
	graph.Store[K, T]
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
	CreatesCycle(source, target K) (bool, error)
}

type vertex[T any] struct {
	value T
	props graph.VertexProperties
}

// MemoryStore keeps vertices and edges in maps. Edges are indexed by source,
// and a predecessor set per target serves RemoveVertex and cycle checks.
type MemoryStore[K comparable, T any] struct {
	mu           sync.RWMutex
	vertices     map[K]*vertex[T]
	edges        map[K]map[K]graph.Edge[K]
	predecessors map[K]map[K]struct{}
}

func NewMemoryStore[K comparable, T any]() CustomStore[K, T] {
	return &MemoryStore[K, T]{
		vertices:     make(map[K]*vertex[T]),
		edges:        make(map[K]map[K]graph.Edge[K]),
		predecessors: make(map[K]map[K]struct{}),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}
	s.vertices[k] = &vertex[T]{value: t, props: p}

	return nil
}

func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[k]
	if !ok {
		var zero T

		return zero, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v.value, v.props, nil
}

// UpdateVertex applies options to the stored properties of k.
func (s *MemoryStore[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[k]
	if !ok {
		return graph.ErrVertexNotFound
	}
	if v.props.Attributes == nil {
		v.props.Attributes = make(map[string]string)
	}
	for _, opt := range options {
		opt(&v.props)
	}

	return nil
}

// RemoveVertex fails while k still has incoming or outgoing edges.
func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}
	if len(s.edges[k]) > 0 || len(s.predecessors[k]) > 0 {
		return graph.ErrVertexHasEdges
	}
	delete(s.vertices, k)
	delete(s.edges, k)
	delete(s.predecessors, k)

	return nil
}

func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]K, 0, len(s.vertices))
	for k := range s.vertices {
		out = append(out, k)
	}

	return out, nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vertices), nil
}

func (s *MemoryStore[K, T]) AddEdge(source, target K, edge graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edges[source] == nil {
		s.edges[source] = make(map[K]graph.Edge[K])
	}
	s.edges[source][target] = edge
	if s.predecessors[target] == nil {
		s.predecessors[target] = make(map[K]struct{})
	}
	s.predecessors[target][source] = struct{}{}

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(source, target K, edge graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[source][target]; !ok {
		return graph.ErrEdgeNotFound
	}
	s.edges[source][target] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(source, target K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges[source], target)
	delete(s.predecessors[target], source)

	return nil
}

func (s *MemoryStore[K, T]) Edge(source, target K) (graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.edges[source][target]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []graph.Edge[K]
	for _, targets := range s.edges {
		for _, edge := range targets {
			out = append(out, edge)
		}
	}

	return out, nil
}

// CreatesCycle reports whether an edge from source to target would close a
// cycle, that is whether target already reaches source. The graph calls it
// instead of building a predecessor map on every AddEdge.
func (s *MemoryStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range []K{source, target} {
		if _, ok := s.vertices[k]; !ok {
			return false, errors.Wrapf(graph.ErrVertexNotFound, "vertex %v", k)
		}
	}
	if source == target {
		return true, nil
	}

	seen := map[K]struct{}{source: {}}
	queue := []K{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for pred := range s.predecessors[current] {
			if pred == target {
				return true, nil
			}
			if _, ok := seen[pred]; !ok {
				seen[pred] = struct{}{}
				queue = append(queue, pred)
			}
		}
	}

	return false, nil
}
