// Package traversal builds and runs queries over a graph.Store.
//
// A query is built in two phases. A Builder appends steps and Finalize
// validates them into an immutable Plan without touching any store. RunPlan
// then evaluates the Plan step by step against a store:
//
//	plan, err := traversal.NewBuilder().
//		Seed("person").
//		Filter("name", "Alice").
//		RepeatFollowOut("manages", 2).
//		Project(traversal.F("Name", "name"), traversal.F("Role", "role")).
//		Finalize()
//	if err != nil {
//		return err // *PlanError
//	}
//	res, err := traversal.RunPlan(ctx, store, plan)
package traversal

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one stage of a plan. The set of steps is closed: AllWithLabel,
// HasProperty, FollowOut, RepeatFollowOut and Project.
type Step interface {
	step()
	String() string
}

// AllWithLabel seeds the working set with every vertex carrying Label.
type AllWithLabel struct {
	Label string
}

// HasProperty keeps the vertices whose property Key equals Value.
type HasProperty struct {
	Key   string
	Value any
}

// FollowOut replaces the working set with the distinct targets of the
// out-edges labeled EdgeLabel.
type FollowOut struct {
	EdgeLabel string
}

// RepeatFollowOut follows out-edges labeled EdgeLabel up to MaxDepth times
// and emits every vertex reached at every level, once per arrival.
type RepeatFollowOut struct {
	EdgeLabel string
	MaxDepth  int
}

// Project maps each vertex to a Row. It must be the last step.
type Project struct {
	Fields []Field
}

// Field maps a vertex property to an output key of a projected Row.
type Field struct {
	Output   string
	Property string
}

// F is shorthand for Field{Output: output, Property: property}.
func F(output, property string) Field {
	return Field{Output: output, Property: property}
}

func (AllWithLabel) step()    {}
func (HasProperty) step()     {}
func (FollowOut) step()       {}
func (RepeatFollowOut) step() {}
func (Project) step()         {}

func (s AllWithLabel) String() string {
	return "V().hasLabel(" + strconv.Quote(s.Label) + ")"
}

func (s HasProperty) String() string {
	var v string
	if str, ok := s.Value.(string); ok {
		v = strconv.Quote(str)
	} else {
		v = fmt.Sprint(s.Value)
	}
	return "has(" + strconv.Quote(s.Key) + "," + v + ")"
}

func (s FollowOut) String() string {
	return "out(" + strconv.Quote(s.EdgeLabel) + ")"
}

func (s RepeatFollowOut) String() string {
	return fmt.Sprintf("repeat(out(%q)).times(%d).emit()", s.EdgeLabel, s.MaxDepth)
}

func (s Project) String() string {
	var b strings.Builder
	b.WriteString("project(")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.Output))
	}
	b.WriteByte(')')
	for _, f := range s.Fields {
		b.WriteString(".by(" + strconv.Quote(f.Property) + ")")
	}
	return b.String()
}
