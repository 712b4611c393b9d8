package cli

// ABOUTME: `drydock serve` command. Runs the HTTP facade with JSON logging
// ABOUTME: and graceful shutdown on SIGINT/SIGTERM.

import (
	"context"
	"log/slog"
	"os"

	"github.com/drydock-dev/drydock/internal/runtime"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/drydock-dev/drydock/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP facade",
		GroupID: groupAdmin,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			// Structured JSON logs for the long-running server process.
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			return withRegistry(cmd, func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime, reg *sandbox.Registry) error {
				probe := sandbox.NewProbe(cfg.ProbeHost)
				mgr := sandbox.NewManager(rt, reg, probe, logger, cfg.ScratchRoot())
				ex := sandbox.NewExecutor(rt, logger, cfg.ScratchRoot())
				srv := server.New(cfg, ex, mgr, reg, logger)

				errCh := make(chan error, 1)
				go func() {
					errCh <- srv.Start(addr)
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				return srv.Shutdown(context.Background())
			})
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, \":8080\")")

	return cmd
}
