package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stop [<container-id>...]",
		Short:   "Stop preview containers",
		GroupID: groupPreview,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			session, _ := cmd.Flags().GetString("session")

			if !all && session == "" && len(args) == 0 {
				return sandbox.NewUsageError("at least one container id is required (or use --session or --all)")
			}

			return withRegistry(cmd, func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime, reg *sandbox.Registry) error {
				if all {
					count := reg.StopAll(ctx)
					if jsonEnabled(cmd) {
						return writeJSON(cmd.OutOrStdout(), map[string]int{"stopped": count})
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d preview(s)\n", count)
					return err
				}

				if session != "" {
					count := reg.StopSession(ctx, session)
					if jsonEnabled(cmd) {
						return writeJSON(cmd.OutOrStdout(), map[string]int{"stopped": count})
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d preview(s) for session %s\n", count, session)
					return err
				}

				probe := sandbox.NewProbe(cfg.ProbeHost)
				mgr := sandbox.NewManager(rt, reg, probe, slog.Default(), cfg.ScratchRoot())

				var outcomes []sandbox.PreviewOutcome
				for _, id := range args {
					outcome := mgr.Stop(ctx, id)
					outcomes = append(outcomes, outcome)
					if !jsonEnabled(cmd) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, outcome.Message) //nolint:errcheck
					}
				}

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), outcomes)
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("all", false, "Stop every active preview")
	cmd.Flags().StringP("session", "s", "", "Stop the named session's previews")

	return cmd
}
