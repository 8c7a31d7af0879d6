package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/orgchart/pkg/cli"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vertex and edge counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		store, g, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(ctx)
		if err != nil {
			return err
		}

		if format == cli.FormatTable {
			return cli.Output(cli.Table{
				Header: []string{"STORE", "VERTICES", "EDGES"},
				Rows:   [][]string{{g.Store, strconv.Itoa(st.Vertices), strconv.Itoa(st.Edges)}},
			}, cli.OutputOptions{Format: cli.FormatTable, File: outputFile})
		}
		return cli.Output(st, cli.OutputOptions{Format: format, File: outputFile, Query: queryExpr})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
