package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/orgchart/cmd/orgchart/internal/config"
	"github.com/haivivi/orgchart/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts and their graph store configuration.

A context is a named directory holding graph.yaml, which selects the
store the other commands use:

  store: memory | badger | remote
  dir: /path/to/badger        # badger
  endpoint: graph.internal    # remote
  port: 8182                  # remote
  tls: true                   # remote, wss instead of ws

Examples:
  orgchart config list-contexts
  orgchart config add-context local
  orgchart config use-context local
  orgchart config current-context
  orgchart config set local store badger
  orgchart config get local store
  orgchart config view local`,
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("Create one with: orgchart config add-context <name>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSTORE")

		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			store := "?"
			if g, err := config.LoadGraph(cfg.ContextDir(name)); err == nil {
				store = g.Store
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", current, name, store)
		}
		w.Flush()
		return nil
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.AddContext(name); err != nil {
			return err
		}
		if err := config.SaveGraph(cfg.ContextDir(name), config.DefaultGraph()); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q created.", name)
		fmt.Printf("Configure the store with: orgchart config set %s <key> <value>\n", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context and its graph config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.DeleteContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted.", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.UseContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q.", name)
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			cli.PrintInfo("No current context set; commands use an in-memory graph.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

// loadContextGraph resolves an explicitly named context and its graph config.
func loadContextGraph(name string) (string, *config.Graph, error) {
	cfg, err := GetConfig()
	if err != nil {
		return "", nil, err
	}
	if err := config.ValidateContextName(name); err != nil {
		return "", nil, err
	}
	_, dir, err := cfg.ResolveContext(name)
	if err != nil {
		return "", nil, err
	}
	g, err := config.LoadGraph(dir)
	if err != nil {
		return "", nil, err
	}
	return dir, g, nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <key> <value>",
	Short: "Set a graph config value",
	Long: `Set a key in a context's graph.yaml.

Keys: store, dir, endpoint, port, tls

Examples:
  orgchart config set local store badger
  orgchart config set local dir /var/lib/orgchart
  orgchart config set prod store remote
  orgchart config set prod endpoint graph.internal
  orgchart config set prod tls true`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctxName, key, value := args[0], args[1], args[2]
		dir, g, err := loadContextGraph(ctxName)
		if err != nil {
			return err
		}
		if err := g.Set(key, value); err != nil {
			return err
		}
		if err := config.SaveGraph(dir, g); err != nil {
			return err
		}

		cli.PrintSuccess("Set %s = %s (context: %s)", key, value, ctxName)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> <key>",
	Short: "Get a graph config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, g, err := loadContextGraph(args[0])
		if err != nil {
			return err
		}
		val, err := g.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [context]",
	Short: "Print a context's graph config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			cfg, err := GetConfig()
			if err != nil {
				return err
			}
			name = cfg.CurrentContext
		}
		g := config.DefaultGraph()
		if name != "" {
			var err error
			if _, g, err = loadContextGraph(name); err != nil {
				return err
			}
		}

		format := cli.FormatYAML
		if formatOutput != "" {
			f, err := cli.ParseFormat(formatOutput)
			if err != nil {
				return err
			}
			format = f
		}
		return cli.Output(g, cli.OutputOptions{Format: format, File: outputFile, Query: queryExpr})
	},
}

func init() {
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configViewCmd)

	rootCmd.AddCommand(configCmd)
}
