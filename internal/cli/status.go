package cli

import (
	"context"
	"fmt"

	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the session's preview status",
		GroupID: groupPreview,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := resolveSession(cmd)

			return withManager(cmd, func(ctx context.Context, mgr *sandbox.Manager) error {
				outcome, ok := mgr.Status(ctx, session)
				if !ok {
					if jsonEnabled(cmd) {
						return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "none"})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "No active preview for session %q\n", session) //nolint:errcheck
					return nil
				}

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), outcome)
				}
				printOutcome(cmd, outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringP("session", "s", "", "Session id to query (default: $DRYDOCK_SESSION or \"default\")")

	return cmd
}
