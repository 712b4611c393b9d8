package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// EnvSessionName is the environment variable used as the default session id.
const EnvSessionName = "DRYDOCK_SESSION"

// resolveSession picks the session id from the --session flag, falling
// back to DRYDOCK_SESSION and then to "default". Every caller gets a
// usable id; sessions are created implicitly on first use.
func resolveSession(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("session"); s != "" {
		return s
	}
	if env := os.Getenv(EnvSessionName); env != "" {
		return env
	}
	return "default"
}
