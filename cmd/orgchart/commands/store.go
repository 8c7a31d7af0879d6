package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haivivi/orgchart/cmd/orgchart/internal/config"
	"github.com/haivivi/orgchart/pkg/graph"
	"github.com/haivivi/orgchart/pkg/remote"
)

// resolveGraph returns the graph config of the selected context. Without
// any context it falls back to an in-memory store.
func resolveGraph() (*config.Graph, string, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, "", err
	}
	name, dir, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, "", err
	}
	if dir == "" {
		return config.DefaultGraph(), "", nil
	}
	g, err := config.LoadGraph(dir)
	if err != nil {
		return nil, "", err
	}
	if err := g.Validate(); err != nil {
		return nil, "", fmt.Errorf("context %q: %w", name, err)
	}
	return g, name, nil
}

// openStore opens the graph store of the selected context.
func openStore(ctx context.Context) (graph.Store, *config.Graph, error) {
	g, name, err := resolveGraph()
	if err != nil {
		return nil, nil, err
	}
	s, err := openGraph(ctx, g)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("opened graph store", "context", name, "store", g.Store)
	return s, g, nil
}

func openGraph(ctx context.Context, g *config.Graph) (graph.Store, error) {
	switch g.Store {
	case config.StoreMemory:
		return graph.NewMemory(), nil
	case config.StoreBadger:
		return graph.NewBadger(graph.BadgerOptions{Dir: g.Dir, Logger: slog.Default()})
	case config.StoreRemote:
		return remote.Dial(ctx, remote.Config{URL: g.URL(), Logger: slog.Default()})
	}
	return nil, fmt.Errorf("invalid store %q", g.Store)
}
