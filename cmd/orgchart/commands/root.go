package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/orgchart/cmd/orgchart/internal/config"
)

var (
	// Global flags
	verbose      bool
	contextName  string
	formatOutput string
	queryExpr    string
	outputFile   string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "orgchart",
	Short: "Query an org hierarchy stored as a property graph",
	Long: `orgchart - seed and query an org hierarchy stored as a property graph.

Commands run against the graph store selected by the current context:
  memory   in-process store (default, nothing persists between runs)
  badger   persistent store in a local directory
  remote   a graph served by 'orgchart serve'

Configuration is stored in the OS config directory, or $ORGCHART_CONFIG_DIR:
  macOS:   ~/Library/Application Support/orgchart/
  Linux:   ~/.config/orgchart/
  Windows: %AppData%/orgchart/

Examples:
  # One-shot against an in-memory graph
  orgchart run setup subs

  # Persistent graph
  orgchart config add-context local
  orgchart config set local store badger
  orgchart config set local dir ~/.local/share/orgchart
  orgchart config use-context local
  orgchart run setup
  orgchart run people --format json --query '.[].Name'`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use (default: current context)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "", "output format: table, yaml, json, raw (default depends on command)")
	rootCmd.PersistentFlags().StringVarP(&queryExpr, "query", "q", "", "jq expression applied to structured output")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
}

// setupLogging routes slog to stderr so stdout carries only command output.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Commands that need config get the error from GetConfig; the
		// others, like 'orgchart version', still run.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
// Returns an error if the config could not be loaded (e.g., HOME not set).
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
