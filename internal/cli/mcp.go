package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/drydock-dev/drydock/internal/mcp"
	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newMCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:     "mcp",
		Short:   "Run the MCP tool server over stdio",
		GroupID: groupAdmin,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Stdout belongs to the MCP protocol; logs go to stderr.
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			slog.SetDefault(logger)

			return withRegistry(cmd, func(_ context.Context, cfg *sandbox.Config, rt runtime.Runtime, reg *sandbox.Registry) error {
				probe := sandbox.NewProbe(cfg.ProbeHost)
				mgr := sandbox.NewManager(rt, reg, probe, logger, cfg.ScratchRoot())
				ex := sandbox.NewExecutor(rt, logger, cfg.ScratchRoot())

				return mcp.New(version, ex, mgr, reg, logger).Serve()
			})
		},
	}
}
