package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List preview containers and their status",
		GroupID: groupPreview,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")

			return withRegistry(cmd, func(_ context.Context, _ *sandbox.Config, _ runtime.Runtime, reg *sandbox.Registry) error {
				records := reg.Active()
				if all {
					records = reg.All()
				}

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), records)
				}

				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No previews found") //nolint:errcheck // best-effort output
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "CONTAINER\tSESSION\tFRAMEWORK\tPORT\tSTATUS\tEXPIRES\tURL") //nolint:errcheck // best-effort output
				for _, rec := range records {
					expires := "-"
					if rec.Status.Active() {
						expires = rec.FormatRemaining()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", //nolint:errcheck // best-effort output
						shortContainerID(rec.ContainerID),
						rec.SessionID,
						rec.Framework,
						rec.Port,
						rec.Status,
						expires,
						rec.URL,
					)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Include stopped, expired, and failed previews")

	return cmd
}

// shortContainerID trims a container id to the familiar 12-character form.
func shortContainerID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
