package cli

// ABOUTME: CLI commands for reading and writing drydock config.yaml settings.

import (
	"fmt"
	"os"

	"github.com/drydock-dev/drydock/internal/sandbox"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Get or set configuration values",
		GroupID: groupAdmin,
	}

	cmd.AddCommand(
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print configuration value(s)",
		Long: `Print configuration values from config.yaml in the data directory.

Without arguments, prints the entire config file.
With a key (e.g., port_range_start), prints just that value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				data, err := sandbox.ReadConfigRaw()
				if err != nil {
					return err
				}
				if data != nil {
					_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
					return err
				}
				return nil
			}

			value, found, err := sandbox.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			if !found {
				os.Exit(1)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in config.yaml under the data directory.

Creates the config file if it doesn't exist.
Preserves comments and formatting.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return sandbox.UpdateConfigFields(map[string]string{
				args[0]: args[1],
			})
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), sandbox.ConfigPath())
			return err
		},
	}
}
