package cli

// ABOUTME: Pager support for `drydock logs`. Long dev-server output goes
// ABOUTME: through $PAGER on a TTY and straight to stdout otherwise.

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// runPager pipes content through $PAGER (default "less -R") when stdout
// is a terminal. Piped output is copied straight through, and a missing
// pager binary degrades to a direct copy rather than an error.
func runPager(r io.Reader) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd conversion is safe on all supported platforms
		_, err := io.Copy(os.Stdout, r)
		return err
	}

	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	var args []string
	if strings.HasSuffix(pager, "less") {
		// -R passes through the color codes dev servers emit.
		args = append(args, "-R")
	}

	cmd := exec.Command(pager, args...) //nolint:gosec // G204: pager comes from $PAGER or the "less" default
	cmd.Stdin = r
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		_, copyErr := io.Copy(os.Stdout, r)
		return copyErr
	}
	return err
}
