package traversal

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/haivivi/orgchart/pkg/graph"
)

// ErrResultLimit is returned when a step produces more vertices than
// Options.MaxResults allows.
var ErrResultLimit = errors.New("traversal: result limit exceeded")

// Options tunes execution.
type Options struct {
	// MaxResults caps the size of the working set after any step.
	// Zero means unlimited.
	MaxResults int
}

// Result is the materialized output of a plan. Rows is set for plans ending
// in Project; otherwise Vertices holds the final working set.
type Result struct {
	Vertices []graph.VertexRef
	Rows     []Row
}

// RunPlan evaluates p against s. Errors from the store abort the run and are
// returned unchanged. RunPlan never mutates the store.
func RunPlan(ctx context.Context, s graph.Store, p Plan) (*Result, error) {
	return RunPlanWith(ctx, s, p, Options{})
}

// RunPlanWith is RunPlan with explicit options.
func RunPlanWith(ctx context.Context, s graph.Store, p Plan, opts Options) (*Result, error) {
	set, err := evaluate(ctx, s, p, opts)
	if err != nil {
		return nil, err
	}
	pr, ok := p.project()
	if !ok {
		return &Result{Vertices: set}, nil
	}
	rows := make([]Row, 0, len(set))
	for row, err := range project(ctx, s, pr, set) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return &Result{Rows: rows}, nil
}

// Stream evaluates p and yields projected rows one at a time. Each row's
// properties are read from the store when the row is produced. The plan must
// end in Project.
func Stream(ctx context.Context, s graph.Store, p Plan) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		pr, ok := p.project()
		if !ok {
			yield(Row{}, &PlanError{Index: -1, Reason: "stream requires a plan ending in project"})
			return
		}
		set, err := evaluate(ctx, s, p, Options{})
		if err != nil {
			yield(Row{}, err)
			return
		}
		for row, err := range project(ctx, s, pr, set) {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// evaluate runs every non-Project step and returns the final working set.
// Each step runs to completion before the next begins.
func evaluate(ctx context.Context, s graph.Store, p Plan, opts Options) ([]graph.VertexRef, error) {
	if len(p.steps) == 0 {
		return nil, &PlanError{Index: -1, Reason: "plan is not finalized"}
	}
	var set []graph.VertexRef
	for _, st := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch st := st.(type) {
		case AllWithLabel:
			set, err = seed(ctx, s, st.Label)
		case HasProperty:
			set, err = filter(ctx, s, set, st.Key, st.Value)
		case FollowOut:
			set, err = followOut(ctx, s, set, st.EdgeLabel)
		case RepeatFollowOut:
			set, err = repeatFollowOut(ctx, s, set, st.EdgeLabel, st.MaxDepth, opts.MaxResults)
		case Project:
			return set, nil
		default:
			return nil, &PlanError{Index: -1, Reason: fmt.Sprintf("unknown step %T", st)}
		}
		if err != nil {
			return nil, err
		}
		if opts.MaxResults > 0 && len(set) > opts.MaxResults {
			return nil, fmt.Errorf("%w: %s produced %d vertices (max %d)", ErrResultLimit, st, len(set), opts.MaxResults)
		}
	}
	return set, nil
}

func seed(ctx context.Context, s graph.Store, label string) ([]graph.VertexRef, error) {
	var set []graph.VertexRef
	for v, err := range s.VerticesByLabel(ctx, label) {
		if err != nil {
			return nil, err
		}
		set = append(set, v.ID)
	}
	return set, nil
}

func filter(ctx context.Context, s graph.Store, in []graph.VertexRef, key string, want any) ([]graph.VertexRef, error) {
	var set []graph.VertexRef
	for _, ref := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, ok, err := s.Property(ctx, ref, key)
		if err != nil {
			return nil, err
		}
		if ok && graph.EqualValues(got, want) {
			set = append(set, ref)
		}
	}
	return set, nil
}

// followOut returns the distinct targets in first-arrival order.
func followOut(ctx context.Context, s graph.Store, in []graph.VertexRef, edgeLabel string) ([]graph.VertexRef, error) {
	var set []graph.VertexRef
	seen := make(map[graph.VertexRef]struct{})
	for _, ref := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for e, err := range s.OutEdges(ctx, ref, edgeLabel) {
			if err != nil {
				return nil, err
			}
			if _, ok := seen[e.To]; ok {
				continue
			}
			seen[e.To] = struct{}{}
			set = append(set, e.To)
		}
	}
	return set, nil
}

// repeatFollowOut expands the frontier level by level up to maxDepth and
// emits every arrival at every level. A vertex reached by two edges appears
// twice; one reached at two depths appears at both. maxDepth bounds the work
// on cyclic graphs.
func repeatFollowOut(ctx context.Context, s graph.Store, frontier []graph.VertexRef, edgeLabel string, maxDepth, limit int) ([]graph.VertexRef, error) {
	var emitted []graph.VertexRef
	for depth := 1; depth <= maxDepth; depth++ {
		var next []graph.VertexRef
		for _, ref := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for e, err := range s.OutEdges(ctx, ref, edgeLabel) {
				if err != nil {
					return nil, err
				}
				next = append(next, e.To)
			}
			if limit > 0 && len(emitted)+len(next) > limit {
				return nil, fmt.Errorf("%w: repeat depth %d exceeds %d vertices", ErrResultLimit, depth, limit)
			}
		}
		if len(next) == 0 {
			break
		}
		emitted = append(emitted, next...)
		frontier = next
	}
	return emitted, nil
}

// project yields one Row per vertex, reading the vertex when the row is
// produced.
func project(ctx context.Context, s graph.Store, pr Project, set []graph.VertexRef) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		keys := make([]string, len(pr.Fields))
		for i, f := range pr.Fields {
			keys[i] = f.Output
		}
		for _, ref := range set {
			if err := ctx.Err(); err != nil {
				yield(Row{}, err)
				return
			}
			v, err := s.Vertex(ctx, ref)
			if err != nil {
				yield(Row{}, err)
				return
			}
			values := make([]any, len(pr.Fields))
			for i, f := range pr.Fields {
				values[i] = v.Props[f.Property]
			}
			if !yield(Row{keys: keys, values: values}, nil) {
				return
			}
		}
	}
}
