// Package orgchart runs a fixed set of commands against an org hierarchy
// stored as a property graph: seed the sample team, list everybody, list
// Alice's direct reports and list everybody under her up to two levels.
//
// Usage:
//
//	h := &orgchart.Handler{Store: graph.NewMemory(), Out: os.Stdout}
//	if _, err := h.Handle(ctx, "setup"); err != nil { ... }
//	if _, err := h.Handle(ctx, "subs"); err != nil { ... }
package orgchart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/haivivi/orgchart/pkg/graph"
	"github.com/haivivi/orgchart/pkg/traversal"
)

// Command names accepted by Handle.
const (
	CmdSetup   = "setup"
	CmdPeople  = "people"
	CmdDirects = "directs"
	CmdSubs    = "subs"
)

// Labels and property keys of the org graph.
const (
	LabelPerson  = "person"
	LabelManages = "manages"
	PropName     = "name"
	PropRole     = "role"
	PropWeight   = "weight"
)

// SubsDepth is how many management levels the subs command descends.
const SubsDepth = 2

// Success is returned by Handle when a command completes.
const Success = "success"

// ErrUnknownInput matches any *UnknownInputError via errors.Is.
var ErrUnknownInput = errors.New("orgchart: unrecognized function input")

// UnknownInputError is returned for a command that Handle does not know.
type UnknownInputError struct {
	Input string
}

func (e *UnknownInputError) Error() string {
	return fmt.Sprintf("unrecognized function input: %s - try %s", e.Input, strings.Join(Commands(), ", "))
}

func (e *UnknownInputError) Is(target error) bool { return target == ErrUnknownInput }

// Commands returns the accepted command names in help order.
func Commands() []string {
	return []string{CmdSetup, CmdPeople, CmdDirects, CmdSubs}
}

// Handler dispatches commands to a graph store.
type Handler struct {
	// Store is the graph the commands operate on. Required.
	Store graph.Store

	// Logger receives progress messages. Defaults to slog.Default().
	Logger *slog.Logger

	// Out receives the listing printed by the query commands. Nil
	// discards it.
	Out io.Writer
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return io.Discard
}

// Handle runs one command. Query commands print a "Name     Role" listing
// to Out. It returns Success or the first error encountered.
func (h *Handler) Handle(ctx context.Context, input string) (string, error) {
	if input == CmdSetup {
		if err := h.Setup(ctx); err != nil {
			return "", err
		}
		h.logger().Info("Successful")
		return Success, nil
	}
	rows, err := h.Query(ctx, input)
	if err != nil {
		return "", err
	}
	if err := WriteListing(h.out(), rows); err != nil {
		return "", err
	}
	h.logger().Info("Successful")
	return Success, nil
}

// Query runs a query command and returns its rows with Name and Role keys.
func (h *Handler) Query(ctx context.Context, input string) ([]traversal.Row, error) {
	plan, desc, err := PlanFor(input)
	if err != nil {
		return nil, err
	}
	log := h.logger()
	log.Info(desc)
	log.Debug("running traversal", "plan", plan.String())

	res, err := traversal.RunPlan(ctx, h.Store, plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	log.Debug("traversal done", "rows", len(res.Rows))
	return res.Rows, nil
}

// PlanFor returns the traversal behind a query command and a human readable
// description of it. setup is not a query and yields an UnknownInputError.
func PlanFor(input string) (traversal.Plan, string, error) {
	b := traversal.NewBuilder().Seed(LabelPerson)
	var desc string
	switch input {
	case CmdPeople:
		desc = "Listing all people"
	case CmdDirects:
		desc = "Listing Alice's direct reports"
		b.Filter(PropName, "Alice").FollowOut(LabelManages)
	case CmdSubs:
		desc = "Listing Alice's subordinates"
		b.Filter(PropName, "Alice").RepeatFollowOut(LabelManages, SubsDepth)
	default:
		return traversal.Plan{}, "", &UnknownInputError{Input: input}
	}
	plan, err := b.Project(traversal.F("Name", PropName), traversal.F("Role", PropRole)).Finalize()
	if err != nil {
		return traversal.Plan{}, "", err
	}
	return plan, desc, nil
}

// WriteListing prints rows in the fixed-width "Name     Role" format.
func WriteListing(w io.Writer, rows []traversal.Row) error {
	if _, err := fmt.Fprintln(w, "Name     Role"); err != nil {
		return err
	}
	for _, row := range rows {
		name, _ := row.Get("Name")
		role, _ := row.Get("Role")
		if _, err := fmt.Fprintf(w, "%-8s %-8s\n", cell(name), cell(role)); err != nil {
			return err
		}
	}
	return nil
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
