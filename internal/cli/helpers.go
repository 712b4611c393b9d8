package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drydock-dev/drydock/internal/runtime"
	dockerrt "github.com/drydock-dev/drydock/internal/runtime/docker"
	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

// withRuntime loads config, connects to Docker, calls fn, and ensures
// cleanup.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime) error) error {
	ctx := cmd.Context()
	cfg, err := sandbox.LoadConfig()
	if err != nil {
		return err
	}

	rt, err := dockerrt.New(ctx)
	if err != nil {
		return fmt.Errorf("connect to runtime: %w", err)
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	return fn(ctx, cfg, rt)
}

// withRegistry adds the shared container registry on top of withRuntime.
// The registry's background sweeper is stopped when fn returns.
func withRegistry(cmd *cobra.Command, fn func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime, reg *sandbox.Registry) error) error {
	return withRuntime(cmd, func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime) error {
		reg := sandbox.NewRegistry(cfg, rt, slog.Default())
		defer reg.Close()
		return fn(ctx, cfg, rt, reg)
	})
}

// withManager builds the preview manager stack for preview commands.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, mgr *sandbox.Manager) error) error {
	return withRegistry(cmd, func(ctx context.Context, cfg *sandbox.Config, rt runtime.Runtime, reg *sandbox.Registry) error {
		probe := sandbox.NewProbe(cfg.ProbeHost)
		mgr := sandbox.NewManager(rt, reg, probe, slog.Default(), cfg.ScratchRoot())
		return fn(ctx, mgr)
	})
}

// planFromFlags builds an optional generation plan from --language and
// --framework.
func planFromFlags(cmd *cobra.Command) *sandbox.Plan {
	lang, _ := cmd.Flags().GetString("language")
	fw, _ := cmd.Flags().GetString("framework")
	if lang == "" && fw == "" {
		return nil
	}
	return &sandbox.Plan{Language: lang, Framework: fw}
}

// addPlanFlags registers the shared --language/--framework hint flags.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().String("language", "", "Declared language hint (python, node, typescript)")
	cmd.Flags().String("framework", "", "Declared framework hint (fastapi, flask, express, ...)")
}
