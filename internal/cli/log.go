package cli

// ABOUTME: Process-wide slog setup driven by the --verbose/--quiet counts.

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// setupLogger installs the default slog logger with a level derived from
// the persistent verbosity flags. Quiet wins over verbose when both are
// given.
func setupLogger(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetCount("verbose")
	quiet, _ := cmd.Flags().GetCount("quiet")

	level := slog.LevelInfo
	switch {
	case quiet >= 2:
		level = slog.LevelError
	case quiet == 1:
		level = slog.LevelWarn
	case verbose >= 1:
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
