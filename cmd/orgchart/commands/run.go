package commands

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/orgchart/pkg/cli"
	"github.com/haivivi/orgchart/pkg/orgchart"
)

var runOrgCmd = &cobra.Command{
	Use:   "run <command>...",
	Short: "Run org chart commands against the graph",
	Long: `Run one or more org chart commands in order against the same store.

Commands:
  setup     drop the graph and load the sample team
  people    list everybody
  directs   list Alice's direct reports
  subs      list everybody under Alice, two levels deep

The default table format prints the fixed-width "Name     Role" listing;
with -o every listing goes to that file. yaml and json print the rows and
accept --query; with -o each command overwrites the file.

Examples:
  orgchart run setup subs
  orgchart run -c local people --format json
  orgchart run directs --format json --query '[.[].Name]'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, in := range args {
			if !slices.Contains(orgchart.Commands(), in) {
				return &orgchart.UnknownInputError{Input: in}
			}
		}
		format, err := cli.ParseFormat(formatOutput)
		if err != nil {
			return err
		}
		if formatOutput == "" {
			format = cli.FormatTable
		}
		if queryExpr != "" && format == cli.FormatTable {
			return fmt.Errorf("--query needs --format yaml or json")
		}

		ctx := cmd.Context()
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		out := os.Stdout
		if outputFile != "" && format == cli.FormatTable {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		h := &orgchart.Handler{Store: store, Out: out}
		for _, in := range args {
			start := time.Now()
			if in == orgchart.CmdSetup || format == cli.FormatTable {
				if _, err := h.Handle(ctx, in); err != nil {
					return err
				}
			} else {
				rows, err := h.Query(ctx, in)
				if err != nil {
					return err
				}
				err = cli.Output(rows, cli.OutputOptions{Format: format, File: outputFile, Query: queryExpr})
				if err != nil {
					return err
				}
			}
			cli.PrintVerbose(IsVerbose(), "%s took %s", in, time.Since(start).Round(time.Microsecond))
		}
		return nil
	},
}

func init() {
	runOrgCmd.ValidArgs = orgchart.Commands()
	rootCmd.AddCommand(runOrgCmd)
}
