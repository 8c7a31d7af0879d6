// Package graph provides a directed, labeled property graph store. Vertices
// and edges carry a single label and a bag of scalar properties. The store
// owns every element; callers hold only opaque VertexRef / EdgeRef handles
// assigned on creation.
//
// Two implementations live here: Memory for in-process use and tests, and
// Badger for a persistent store. Package remote provides a third one that
// forwards the same contract over a websocket.
package graph

import (
	"context"
	"fmt"
	"iter"
	"strconv"
)

// VertexRef identifies a vertex. Refs are assigned by the store, never
// reused, and zero is never valid.
type VertexRef uint64

// EdgeRef identifies an edge. Refs are assigned by the store, never reused,
// and zero is never valid.
type EdgeRef uint64

func (r VertexRef) String() string { return "v" + strconv.FormatUint(uint64(r), 10) }
func (r EdgeRef) String() string   { return "e" + strconv.FormatUint(uint64(r), 10) }

// Element is either a VertexRef or an EdgeRef.
type Element interface {
	element()
	String() string
}

func (VertexRef) element() {}
func (EdgeRef) element()   {}

// ParseElement parses the String form of a ref, "v7" or "e7".
func ParseElement(s string) (Element, error) {
	if len(s) < 2 {
		return nil, fmt.Errorf("graph: invalid element %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 64)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("graph: invalid element %q", s)
	}
	switch s[0] {
	case 'v':
		return VertexRef(n), nil
	case 'e':
		return EdgeRef(n), nil
	}
	return nil, fmt.Errorf("graph: invalid element %q", s)
}

// Props is a property bag: string keys to scalar values (string, bool,
// integers, floats). Assigning the same key twice keeps the last value.
type Props map[string]any

// Clone returns a shallow copy of p. A nil bag clones to nil.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	cp := make(Props, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Vertex is a snapshot of a stored vertex.
type Vertex struct {
	ID    VertexRef `json:"id"`
	Label string    `json:"label"`
	Props Props     `json:"props,omitempty"`
}

// Edge is a snapshot of a stored directed edge.
type Edge struct {
	ID    EdgeRef   `json:"id"`
	Label string    `json:"label"`
	From  VertexRef `json:"from"`
	To    VertexRef `json:"to"`
	Props Props     `json:"props,omitempty"`
}

// Stats reports the number of live elements in a store. Edges with a
// missing endpoint are not counted.
type Stats struct {
	Vertices int `json:"vertices"`
	Edges    int `json:"edges"`
}

// Store is the graph store contract shared by every backend.
//
// Mutations are atomic with respect to reads: a reader never observes an
// edge whose endpoints are not both present at the moment it was added.
// Dropping vertices never cascades to edges; drop edges first. Edges left
// behind by an out-of-order drop are never returned by OutEdges.
type Store interface {
	// AddVertex creates a vertex with a fresh ref.
	AddVertex(ctx context.Context, label string, props Props) (VertexRef, error)

	// AddEdge creates a directed edge from -> to. Returns a *ReferenceError
	// if either endpoint does not exist.
	AddEdge(ctx context.Context, label string, from, to VertexRef, props Props) (EdgeRef, error)

	// DropVertex removes one vertex. Its edges are left in place.
	DropVertex(ctx context.Context, ref VertexRef) error

	// DropEdge removes one edge.
	DropEdge(ctx context.Context, ref EdgeRef) error

	// DropAllEdges removes every edge.
	DropAllEdges(ctx context.Context) error

	// DropAllVertices removes every vertex. Edges are left in place.
	DropAllVertices(ctx context.Context) error

	// Vertex resolves a vertex ref.
	Vertex(ctx context.Context, ref VertexRef) (Vertex, error)

	// Edge resolves an edge ref.
	Edge(ctx context.Context, ref EdgeRef) (Edge, error)

	// Property returns the value stored under key on a vertex or edge.
	// ok is false when the element exists but has no such key.
	Property(ctx context.Context, elem Element, key string) (value any, ok bool, err error)

	// VerticesByLabel iterates the vertices whose label equals label
	// (case-sensitive) in insertion order. The sequence can be ranged over
	// more than once; each range reads the store afresh.
	VerticesByLabel(ctx context.Context, label string) iter.Seq2[Vertex, error]

	// OutEdges iterates the edges labeled edgeLabel whose source is vertex,
	// in insertion order. Returns a *ReferenceError if vertex is missing.
	OutEdges(ctx context.Context, vertex VertexRef, edgeLabel string) iter.Seq2[Edge, error]

	// Stats counts live vertices and edges.
	Stats(ctx context.Context) (Stats, error)

	// Close releases resources held by the store.
	Close() error
}
