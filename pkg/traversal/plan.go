package traversal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrPlan matches any *PlanError via errors.Is.
var ErrPlan = errors.New("traversal: invalid plan")

// PlanError reports a structurally invalid plan. It is only produced by
// Finalize (or by running a Plan that was never finalized).
type PlanError struct {
	// Index is the offending step position, or -1 for whole-plan problems.
	Index  int
	Reason string
}

func (e *PlanError) Error() string {
	if e.Index < 0 {
		return "traversal: invalid plan: " + e.Reason
	}
	return fmt.Sprintf("traversal: invalid plan: step %d: %s", e.Index, e.Reason)
}

func (e *PlanError) Is(target error) bool { return target == ErrPlan }

// Builder accumulates steps. Building performs no I/O; all validation
// happens in Finalize. A Builder is not safe for concurrent use.
type Builder struct {
	steps []Step
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds a step and returns b for chaining.
func (b *Builder) Append(s Step) *Builder {
	if p, ok := s.(Project); ok {
		p.Fields = slices.Clone(p.Fields)
		s = p
	}
	b.steps = append(b.steps, s)
	return b
}

// Seed appends AllWithLabel{label}.
func (b *Builder) Seed(label string) *Builder {
	return b.Append(AllWithLabel{Label: label})
}

// Filter appends HasProperty{key, value}.
func (b *Builder) Filter(key string, value any) *Builder {
	return b.Append(HasProperty{Key: key, Value: value})
}

// FollowOut appends FollowOut{edgeLabel}.
func (b *Builder) FollowOut(edgeLabel string) *Builder {
	return b.Append(FollowOut{EdgeLabel: edgeLabel})
}

// RepeatFollowOut appends RepeatFollowOut{edgeLabel, maxDepth}.
func (b *Builder) RepeatFollowOut(edgeLabel string, maxDepth int) *Builder {
	return b.Append(RepeatFollowOut{EdgeLabel: edgeLabel, MaxDepth: maxDepth})
}

// Project appends Project{fields}.
func (b *Builder) Project(fields ...Field) *Builder {
	return b.Append(Project{Fields: fields})
}

// Finalize validates the accumulated steps and returns an immutable Plan.
// The Builder may keep being used afterwards without affecting the Plan.
func (b *Builder) Finalize() (Plan, error) {
	if err := validate(b.steps); err != nil {
		return Plan{}, err
	}
	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)
	return Plan{steps: steps}, nil
}

func validate(steps []Step) error {
	if len(steps) == 0 {
		return &PlanError{Index: -1, Reason: "no steps"}
	}
	if _, ok := steps[0].(AllWithLabel); !ok {
		return &PlanError{Index: 0, Reason: fmt.Sprintf("plan must start with a seed step, got %s", steps[0])}
	}
	for i, s := range steps {
		if i > 0 {
			if _, ok := steps[i-1].(Project); ok {
				return &PlanError{Index: i, Reason: "no step may follow project"}
			}
		}
		switch s := s.(type) {
		case AllWithLabel:
			if i > 0 {
				return &PlanError{Index: i, Reason: "seed step must come first"}
			}
			if s.Label == "" {
				return &PlanError{Index: i, Reason: "empty vertex label"}
			}
		case HasProperty:
			if s.Key == "" {
				return &PlanError{Index: i, Reason: "empty property key"}
			}
		case FollowOut:
			if s.EdgeLabel == "" {
				return &PlanError{Index: i, Reason: "empty edge label"}
			}
		case RepeatFollowOut:
			if s.EdgeLabel == "" {
				return &PlanError{Index: i, Reason: "empty edge label"}
			}
			if s.MaxDepth < 0 {
				return &PlanError{Index: i, Reason: fmt.Sprintf("negative max depth %d", s.MaxDepth)}
			}
		case Project:
			if len(s.Fields) == 0 {
				return &PlanError{Index: i, Reason: "project has no fields"}
			}
			seen := make(map[string]struct{}, len(s.Fields))
			for _, f := range s.Fields {
				if f.Output == "" || f.Property == "" {
					return &PlanError{Index: i, Reason: "project field with empty name"}
				}
				if _, dup := seen[f.Output]; dup {
					return &PlanError{Index: i, Reason: fmt.Sprintf("duplicate output key %q", f.Output)}
				}
				seen[f.Output] = struct{}{}
			}
		case nil:
			return &PlanError{Index: i, Reason: "nil step"}
		default:
			return &PlanError{Index: i, Reason: fmt.Sprintf("unknown step %T", s)}
		}
	}
	return nil
}

// Plan is a finalized, immutable sequence of steps. The zero Plan is not
// runnable.
type Plan struct {
	steps []Step
}

// Steps returns a copy of the plan's steps.
func (p Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	for i, s := range p.steps {
		if pr, ok := s.(Project); ok {
			pr.Fields = slices.Clone(pr.Fields)
			s = pr
		}
		out[i] = s
	}
	return out
}

// Projected reports whether the plan ends with a Project step.
func (p Plan) Projected() bool {
	_, ok := p.project()
	return ok
}

func (p Plan) project() (Project, bool) {
	if len(p.steps) == 0 {
		return Project{}, false
	}
	pr, ok := p.steps[len(p.steps)-1].(Project)
	return pr, ok
}

// String renders the plan in Gremlin-like notation.
func (p Plan) String() string {
	parts := make([]string, len(p.steps))
	for i, s := range p.steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
