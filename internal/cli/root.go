// Package cli defines the Cobra command tree for the drydock CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

// Command group IDs for help output.
const (
	groupExec    = "exec"
	groupPreview = "preview"
	groupAdmin   = "admin"
)

// Execute runs the root command and returns the exit code.
func Execute(ctx context.Context, version, commit, date string) int {
	rootCmd := newRootCmd(version, commit, date)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	if jsonEnabled(rootCmd) {
		writeJSONError(os.Stderr, err)
	} else {
		fmt.Fprintf(os.Stderr, "drydock: %s\n", err) //nolint:errcheck // best-effort stderr write
	}

	var usageErr *sandbox.UsageError
	if errors.As(err, &usageErr) {
		return 2
	}

	var configErr *sandbox.ConfigError
	if errors.As(err, &configErr) {
		return 3
	}

	return 1
}

// newRootCmd creates the root Cobra command with all subcommands registered.
func newRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drydock",
		Short: "Sandboxed execution and preview hosting for generated code",
		Long: `Run generated code bundles in disposable Docker sandboxes and host
web applications behind preview URLs. One-shot runs install dependencies
with the network up, then execute with the network cut and the code
mounted read-only. Previews get a port from a managed pool and are torn
down automatically when their time-to-live lapses.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogger(cmd)
		},
	}

	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (-v for debug)")
	rootCmd.PersistentFlags().CountP("quiet", "q", "Suppress non-essential output (-q for warn, -qq for error only)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupExec, Title: "Execution Commands:"},
		&cobra.Group{ID: groupPreview, Title: "Preview Commands:"},
		&cobra.Group{ID: groupAdmin, Title: "Administration Commands:"},
	)

	registerCommands(rootCmd, version, commit, date)

	return rootCmd
}
