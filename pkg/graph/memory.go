package graph

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use: every
// mutation holds the write lock for its whole duration and every read
// snapshots under the read lock, so readers never see a partial mutation.
type Memory struct {
	mu sync.RWMutex

	lastVertex VertexRef
	lastEdge   EdgeRef

	vertices map[VertexRef]*Vertex
	edges    map[EdgeRef]*Edge

	// Insertion-ordered indexes.
	byLabel map[string][]VertexRef
	out     map[VertexRef][]EdgeRef
	order   []EdgeRef
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		vertices: make(map[VertexRef]*Vertex),
		edges:    make(map[EdgeRef]*Edge),
		byLabel:  make(map[string][]VertexRef),
		out:      make(map[VertexRef][]EdgeRef),
	}
}

func (m *Memory) AddVertex(_ context.Context, label string, props Props) (VertexRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastVertex++
	ref := m.lastVertex
	m.vertices[ref] = &Vertex{ID: ref, Label: label, Props: props.Clone()}
	m.byLabel[label] = append(m.byLabel[label], ref)
	return ref, nil
}

func (m *Memory) AddEdge(_ context.Context, label string, from, to VertexRef, props Props) (EdgeRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vertices[from]; !ok {
		return 0, &ReferenceError{Op: "AddEdge", Ref: from}
	}
	if _, ok := m.vertices[to]; !ok {
		return 0, &ReferenceError{Op: "AddEdge", Ref: to}
	}
	m.lastEdge++
	ref := m.lastEdge
	m.edges[ref] = &Edge{ID: ref, Label: label, From: from, To: to, Props: props.Clone()}
	m.out[from] = append(m.out[from], ref)
	m.order = append(m.order, ref)
	return ref, nil
}

func (m *Memory) DropVertex(_ context.Context, ref VertexRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vertices[ref]
	if !ok {
		return &ReferenceError{Op: "DropVertex", Ref: ref}
	}
	delete(m.vertices, ref)
	refs := slices.DeleteFunc(m.byLabel[v.Label], func(r VertexRef) bool { return r == ref })
	if len(refs) == 0 {
		delete(m.byLabel, v.Label)
	} else {
		m.byLabel[v.Label] = refs
	}
	return nil
}

func (m *Memory) DropEdge(_ context.Context, ref EdgeRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[ref]
	if !ok {
		return &ReferenceError{Op: "DropEdge", Ref: ref}
	}
	delete(m.edges, ref)
	isRef := func(r EdgeRef) bool { return r == ref }
	if refs := slices.DeleteFunc(m.out[e.From], isRef); len(refs) == 0 {
		delete(m.out, e.From)
	} else {
		m.out[e.From] = refs
	}
	m.order = slices.DeleteFunc(m.order, isRef)
	return nil
}

func (m *Memory) DropAllEdges(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = make(map[EdgeRef]*Edge)
	m.out = make(map[VertexRef][]EdgeRef)
	m.order = nil
	return nil
}

func (m *Memory) DropAllVertices(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vertices = make(map[VertexRef]*Vertex)
	m.byLabel = make(map[string][]VertexRef)
	return nil
}

func (m *Memory) Vertex(_ context.Context, ref VertexRef) (Vertex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vertices[ref]
	if !ok {
		return Vertex{}, &ReferenceError{Op: "Vertex", Ref: ref}
	}
	return Vertex{ID: v.ID, Label: v.Label, Props: v.Props.Clone()}, nil
}

func (m *Memory) Edge(_ context.Context, ref EdgeRef) (Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.liveEdge(ref)
	if !ok {
		return Edge{}, &ReferenceError{Op: "Edge", Ref: ref}
	}
	cp := *e
	cp.Props = e.Props.Clone()
	return cp, nil
}

func (m *Memory) Property(_ context.Context, elem Element, key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var props Props
	switch r := elem.(type) {
	case VertexRef:
		v, ok := m.vertices[r]
		if !ok {
			return nil, false, &ReferenceError{Op: "Property", Ref: r}
		}
		props = v.Props
	case EdgeRef:
		e, ok := m.liveEdge(r)
		if !ok {
			return nil, false, &ReferenceError{Op: "Property", Ref: r}
		}
		props = e.Props
	}
	val, ok := props[key]
	return val, ok, nil
}

func (m *Memory) VerticesByLabel(_ context.Context, label string) iter.Seq2[Vertex, error] {
	return func(yield func(Vertex, error) bool) {
		// Snapshot under the read lock; yield without holding it so the
		// caller may call back into the store.
		m.mu.RLock()
		refs := m.byLabel[label]
		snap := make([]Vertex, 0, len(refs))
		for _, ref := range refs {
			v := m.vertices[ref]
			snap = append(snap, Vertex{ID: v.ID, Label: v.Label, Props: v.Props.Clone()})
		}
		m.mu.RUnlock()

		for _, v := range snap {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (m *Memory) OutEdges(_ context.Context, vertex VertexRef, edgeLabel string) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		m.mu.RLock()
		if _, ok := m.vertices[vertex]; !ok {
			m.mu.RUnlock()
			yield(Edge{}, &ReferenceError{Op: "OutEdges", Ref: vertex})
			return
		}
		var snap []Edge
		for _, ref := range m.out[vertex] {
			e, ok := m.liveEdge(ref)
			if !ok || e.Label != edgeLabel {
				continue
			}
			cp := *e
			cp.Props = e.Props.Clone()
			snap = append(snap, cp)
		}
		m.mu.RUnlock()

		for _, e := range snap {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Vertices: len(m.vertices)}
	for _, ref := range m.order {
		if _, ok := m.liveEdge(ref); ok {
			st.Edges++
		}
	}
	return st, nil
}

func (m *Memory) Close() error {
	return nil
}

// liveEdge returns the edge only if both endpoints still exist.
// Caller must hold mu.
func (m *Memory) liveEdge(ref EdgeRef) (*Edge, bool) {
	e, ok := m.edges[ref]
	if !ok {
		return nil, false
	}
	if _, ok := m.vertices[e.From]; !ok {
		return nil, false
	}
	if _, ok := m.vertices[e.To]; !ok {
		return nil, false
	}
	return e, true
}
