// Package main is the agentd CLI: it wires the runtime's core
// packages (providers, tools, sessions, memory, safety, bus, health)
// behind a small cobra command tree.
//
// Start the runtime:
//
//	agentd serve --config agentd.yaml
//
// Inspect the configured tool catalogue:
//
//	agentd tools list
//
// Inspect managed dependencies:
//
//	agentd deps status
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:           "agentd",
		Short:         "Extensible AI-agent runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		buildServeCmd(),
		buildToolsCmd(),
		buildDepsCmd(),
		buildMemoryCmd(),
		buildVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agentd %s (%s)\n", version, commit)
		},
	}
}
