package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// registerCommands adds all subcommands to the root command.
func registerCommands(root *cobra.Command, version, commit, date string) {
	root.AddCommand(
		newRunCmd(),
		newStartCmd(),
		newStatusCmd(),
		newStopCmd(),
		newLogsCmd(),
		newListCmd(),
		newSweepCmd(),
		newConfigCmd(),
		newServeCmd(),
		newMCPCmd(version),
		newHelpTopicsCmd(),
		newVersionCmd(version, commit, date),
	)
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		GroupID: groupAdmin,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonEnabled(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "drydock version %s (commit: %s, built: %s)\n", version, commit, date)
			return err
		},
	}
}
