// Package main wires claudex's hook entry points to stdio: one
// subcommand per assistant-host hook event, each reading a JSON payload
// from stdin and writing hookio's output envelope to stdout. Hook
// errors never surface to the host; every subcommand prints an output
// envelope and exits 0.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"claudex/internal/logging"
	"claudex/internal/runtimectx"
)

var rtCtx runtimectx.Context

var rootCmd = &cobra.Command{
	Use:   "claudex",
	Short: "claudex hook entry points for a long-running AI coding assistant's context memory",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rtCtx = runtimectx.New()
		if err := logging.Initialize(rtCtx.Paths.Home); err != nil {
			fmt.Fprintf(os.Stderr, "warning: logging init failed: %v\n", err)
		}
		return nil
	},
}

func readStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func main() {
	rootCmd.AddCommand(
		userPromptSubmitCmd,
		sessionStartCmd,
		stopCmd,
		preCompactCmd,
		postToolUseCmd,
		sessionEndCmd,
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
