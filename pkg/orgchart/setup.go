package orgchart

import (
	"context"
	"fmt"

	"github.com/haivivi/orgchart/pkg/graph"
)

// Member is one person of the sample team.
type Member struct {
	Name string
	Role string
}

// Report is a manages edge between two members, by name.
type Report struct {
	Manager string
	Report  string
	// Weight is stored as the edge's weight property when non-zero.
	Weight float64
}

// Team is the sample hierarchy created by the setup command.
var Team = []Member{
	{"Alice", "Manager"},
	{"Bob", "Engineer"},
	{"Justin", "Writer"},
	{"Ashok", "Intern"},
	{"Jamal", "Intern"},
}

// Reports are the manages edges of Team.
var Reports = []Report{
	{"Alice", "Bob", 0},
	{"Alice", "Justin", 0.5},
	{"Justin", "Ashok", 0.5},
	{"Justin", "Jamal", 0.5},
}

// Setup clears the store and loads Team and Reports. Edges are dropped
// before vertices so no edge is ever left without its endpoints.
func (h *Handler) Setup(ctx context.Context) error {
	log := h.logger()

	log.Info("Dropping all edges")
	if err := h.Store.DropAllEdges(ctx); err != nil {
		return fmt.Errorf("drop edges: %w", err)
	}
	log.Info("Dropping all vertices")
	if err := h.Store.DropAllVertices(ctx); err != nil {
		return fmt.Errorf("drop vertices: %w", err)
	}

	log.Info("Adding vertices")
	refs := make(map[string]graph.VertexRef, len(Team))
	for _, m := range Team {
		ref, err := h.Store.AddVertex(ctx, LabelPerson, graph.Props{PropName: m.Name, PropRole: m.Role})
		if err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
		refs[m.Name] = ref
		log.Debug("added vertex", "name", m.Name, "ref", ref)
	}

	log.Info("Adding edges")
	for _, r := range Reports {
		var props graph.Props
		if r.Weight != 0 {
			props = graph.Props{PropWeight: r.Weight}
		}
		ref, err := h.Store.AddEdge(ctx, LabelManages, refs[r.Manager], refs[r.Report], props)
		if err != nil {
			return fmt.Errorf("add %s -> %s: %w", r.Manager, r.Report, err)
		}
		log.Debug("added edge", "from", r.Manager, "to", r.Report, "ref", ref)
	}
	return nil
}
