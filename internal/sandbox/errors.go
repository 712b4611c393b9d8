package sandbox

// ABOUTME: Error types shared across the sandbox package. Wrapper types
// ABOUTME: classify failures so the CLI can map them to exit codes.

import (
	"errors"
	"fmt"
)

// ErrPortExhausted is returned by AllocatePort when every port in the
// configured preview range is taken.
var ErrPortExhausted = errors.New("no ports available in preview range")

// UsageError marks bad arguments or missing required input. The CLI
// maps it to exit code 2.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ConfigError marks a broken or invalid configuration file. The CLI
// maps it to exit code 3.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}
