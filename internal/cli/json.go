package cli

// ABOUTME: Shared --json output plumbing for the drydock commands.

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// jsonEnabled reports whether --json is in effect for cmd. The flag is
// registered on the root as persistent, so subcommands see it through
// their inherited flag set.
func jsonEnabled(cmd *cobra.Command) bool {
	if f := cmd.PersistentFlags().Lookup("json"); f != nil {
		v, _ := cmd.PersistentFlags().GetBool("json")
		return v
	}
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// writeJSON renders v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// writeJSONError emits {"error": ...} for failures under --json, so
// machine consumers never have to parse free-form stderr text.
func writeJSONError(w io.Writer, err error) {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Fprintf(w, "%s\n", data) //nolint:errcheck // best-effort stderr write
}
