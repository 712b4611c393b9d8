package cli

// ABOUTME: `drydock run` one-shot execution command. Loads a bundle from a
// ABOUTME: directory or stdin JSON and prints the execution result.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <dir>",
		Short:   "Execute a code bundle in a disposable sandbox",
		GroupID: groupExec,
		Long: `Execute a code bundle once inside a resource-capped Docker container.
Dependencies install with the network up; the code itself runs with the
network cut and the bundle mounted read-only.

The argument is a directory to load, or "-" to read a JSON bundle
({"files": {"path": "content", ...}}) from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := loadBundle(cmd, args[0])
			if err != nil {
				return err
			}
			plan := planFromFlags(cmd)

			return withRuntime(cmd, func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime) error {
				ex := sandbox.NewExecutor(rt, nil, cfg.ScratchRoot())
				result := ex.Run(ctx, bundle, plan)

				if jsonEnabled(cmd) {
					if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
						return err
					}
					return runExitError(result)
				}

				if result.Message != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), result.Message) //nolint:errcheck // best-effort output
				}
				if result.Stdout != "" {
					fmt.Fprint(cmd.OutOrStdout(), result.Stdout) //nolint:errcheck // best-effort output
				}
				if result.Stderr != "" {
					fmt.Fprint(cmd.ErrOrStderr(), result.Stderr) //nolint:errcheck // best-effort output
				}
				return runExitError(result)
			})
		},
	}

	addPlanFlags(cmd)

	return cmd
}

// runExitError maps a failed execution to a short command error so the
// process exits non-zero. Skips are not failures.
func runExitError(result sandbox.ExecutionResult) error {
	switch result.Status {
	case sandbox.ExecError:
		return fmt.Errorf("execution failed")
	case sandbox.ExecTimeout:
		return fmt.Errorf("execution timed out")
	default:
		return nil
	}
}

// loadBundle reads the bundle argument: a directory path, or "-" for a
// JSON bundle on stdin.
func loadBundle(cmd *cobra.Command, arg string) (sandbox.Bundle, error) {
	if arg == "-" {
		var bundle sandbox.Bundle
		if err := json.NewDecoder(cmd.InOrStdin()).Decode(&bundle); err != nil {
			return sandbox.Bundle{}, sandbox.NewUsageError("parse bundle from stdin: %v", err)
		}
		return bundle, nil
	}
	return sandbox.LoadBundleDir(arg)
}
