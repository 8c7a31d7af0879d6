package commands

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/orgchart/cmd/orgchart/internal/config"
	"github.com/haivivi/orgchart/pkg/remote"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the context's graph over websocket",
	Long: `Serve the graph store of the selected context so that other orgchart
processes can use it as a remote store.

Endpoints:
  /graph     websocket graph protocol
  /healthz   liveness check
  /metrics   Prometheus metrics

Examples:
  orgchart serve -c local
  orgchart serve --listen 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _, err := resolveGraph()
		if err != nil {
			return err
		}
		if g.Store == config.StoreRemote {
			return fmt.Errorf("cannot serve a remote store; select a memory or badger context")
		}

		ctx := cmd.Context()
		store, err := openGraph(ctx, g)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := remote.NewServer(store, remote.ServerOptions{Logger: slog.Default()})
		return srv.ListenAndServe(ctx, serveListen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", net.JoinHostPort("", strconv.Itoa(remote.DefaultPort)), "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
