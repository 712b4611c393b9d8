package cli

// ABOUTME: `drydock logs` command. Fetches recent container output, with
// ABOUTME: ANSI escape stripping for dev-server noise.

import (
	"bytes"
	"context"
	"strings"

	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logs <container-id>",
		Short:   "Show recent preview container output",
		GroupID: groupPreview,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tail, _ := cmd.Flags().GetInt("tail")
			noStrip, _ := cmd.Flags().GetBool("no-strip")
			noPager, _ := cmd.Flags().GetBool("no-pager")

			return withManager(cmd, func(ctx context.Context, mgr *sandbox.Manager) error {
				logs := mgr.Logs(ctx, args[0], tail)

				if jsonEnabled(cmd) {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"logs": logs})
				}

				if !noStrip {
					var buf bytes.Buffer
					if err := stripANSI(&buf, strings.NewReader(logs)); err != nil {
						return err
					}
					logs = buf.String()
				}

				if noPager {
					_, err := cmd.OutOrStdout().Write([]byte(logs))
					return err
				}
				return runPager(strings.NewReader(logs))
			})
		},
	}

	cmd.Flags().Int("tail", sandbox.DefaultLogTail, "Number of trailing log lines to fetch")
	cmd.Flags().Bool("no-strip", false, "Show raw output with ANSI escape sequences")
	cmd.Flags().Bool("no-pager", false, "Write directly to stdout instead of $PAGER")

	return cmd
}
