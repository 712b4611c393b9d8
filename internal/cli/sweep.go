package cli

import (
	"context"
	"fmt"

	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sweep",
		Short:   "Tear down expired previews and drop stale records",
		GroupID: groupPreview,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRegistry(cmd, func(ctx context.Context, _ *sandbox.Config, _ runtime.Runtime, reg *sandbox.Registry) error {
				expired := len(reg.SweepExpired(ctx))
				pruned := reg.PruneStaleTerminal()

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), map[string]int{
						"expired": expired,
						"pruned":  pruned,
					})
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Swept %d expired preview(s), pruned %d stale record(s)\n", expired, pruned)
				return err
			})
		},
	}
}
