// Package main is the entry point for the orgchart CLI.
//
// Usage:
//
//	orgchart [flags] <command> [subcommand] [args]
//
// Commands:
//
//	run        - Run org chart commands (setup, people, directs, subs)
//	serve      - Serve a graph store over websocket
//	stats      - Show vertex and edge counts
//	config     - Configuration management (contexts, graph store)
//	version    - Show version information
package main

import (
	"os"

	"github.com/haivivi/orgchart/cmd/orgchart/commands"
	"github.com/haivivi/orgchart/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
