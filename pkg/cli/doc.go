// Package cli provides common output utilities for the orgchart command.
//
// This package includes:
//   - Output formatting (YAML, JSON, table, raw)
//   - jq filtering of structured output
//   - Terminal print helpers
//
// Example usage:
//
//	cli.Output(rows, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".[].Name",
//	})
package cli
