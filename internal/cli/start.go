package cli

// ABOUTME: `drydock start` preview hosting command. Launches a long-lived
// ABOUTME: container behind an allocated port and prints the preview URL.

import (
	"context"
	"fmt"

	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start <dir>",
		Short:   "Start a preview container for a web application bundle",
		GroupID: groupPreview,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := loadBundle(cmd, args[0])
			if err != nil {
				return err
			}
			plan := planFromFlags(cmd)
			session := resolveSession(cmd)

			ttl, _ := cmd.Flags().GetDuration("ttl")
			wait, _ := cmd.Flags().GetBool("wait")

			return withManager(cmd, func(ctx context.Context, mgr *sandbox.Manager) error {
				outcome := mgr.Start(ctx, bundle, plan, session, int(ttl.Minutes()))

				if wait && outcome.Status == sandbox.PreviewStarting {
					if waited, ok := mgr.WaitReady(ctx, session, sandbox.MaxStartupWait); ok {
						outcome = waited
					}
				}

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), outcome)
				}
				printOutcome(cmd, outcome)
				return outcomeExitError(outcome)
			})
		},
	}

	cmd.Flags().StringP("session", "s", "", "Session id owning the preview (default: $DRYDOCK_SESSION or \"default\")")
	cmd.Flags().Duration("ttl", 0, "Preview lifetime before automatic teardown (default 15m)")
	cmd.Flags().BoolP("wait", "w", false, "Block until the preview answers on its port")
	addPlanFlags(cmd)

	return cmd
}

// printOutcome renders a preview outcome for humans.
func printOutcome(cmd *cobra.Command, out sandbox.PreviewOutcome) {
	w := cmd.OutOrStdout()

	if out.Message != "" {
		fmt.Fprintln(w, out.Message) //nolint:errcheck
	}
	if out.URL != "" {
		fmt.Fprintf(w, "URL:        %s\n", out.URL) //nolint:errcheck
	}
	if out.ContainerID != "" {
		fmt.Fprintf(w, "Container:  %s\n", out.ContainerID) //nolint:errcheck
	}
	if out.Framework != "" {
		fmt.Fprintf(w, "Framework:  %s\n", out.Framework) //nolint:errcheck
	}
	if out.TimeRemaining != "" {
		fmt.Fprintf(w, "Expires in: %s\n", out.TimeRemaining) //nolint:errcheck
	}
	if out.Logs != "" {
		fmt.Fprintf(w, "\nRecent logs:\n%s\n", out.Logs) //nolint:errcheck
	}
}

// outcomeExitError maps failed preview outcomes to a short command error
// so the process exits non-zero.
func outcomeExitError(out sandbox.PreviewOutcome) error {
	switch out.Status {
	case sandbox.PreviewError:
		return fmt.Errorf("preview failed")
	case sandbox.PreviewUnsupported:
		return fmt.Errorf("bundle not previewable")
	default:
		return nil
	}
}
