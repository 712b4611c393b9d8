// Package runtime defines the container capability interface the sandbox
// orchestrators run against.
// ABOUTME: Runtime-agnostic types decouple execution/preview logic from the
// ABOUTME: Docker SDK so orchestrators are testable with a fake runtime.
package runtime //nolint:revive // name chosen for clarity; stdlib runtime is not needed alongside this package

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors used across all runtime implementations.
var (
	// ErrNotFound reports a missing container or image.
	ErrNotFound = errors.New("container not found")

	// ErrWaitTimeout reports that an instance did not exit within the
	// wait budget. Orchestrators map it to a timeout outcome.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrDaemonUnavailable reports that the container daemon cannot be
	// reached at all, as opposed to an operation it rejected.
	ErrDaemonUnavailable = errors.New("container daemon unavailable")

	// ErrPortAllocated reports that the daemon refused a host port
	// binding because something else already holds the port.
	ErrPortAllocated = errors.New("host port already allocated")
)

// MountSpec describes a bind mount from host scratch storage into the
// instance. Install phases mount read-write, execution read-only.
type MountSpec struct {
	Source   string
	Target   string
	ReadOnly bool
}

// PortMapping publishes an instance port on a host port.
type PortMapping struct {
	HostPort     int
	InstancePort int
	Protocol     string // default "tcp"
}

// ResourceLimits caps an instance. Fixed policy, never caller-tunable.
type ResourceLimits struct {
	MemoryBytes int64
	CPUPeriod   int64
	CPUQuota    int64
}

// InstanceSpec holds the parameters for launching a sandbox instance.
// Command is a shell fragment run via `sh -c`.
type InstanceSpec struct {
	Name            string
	Image           string
	Command         string
	WorkDir         string
	Mounts          []MountSpec
	Ports           []PortMapping
	Env             map[string]string
	Limits          ResourceLimits
	NetworkDisabled bool
}

// InstanceState is the inspected state of an instance.
type InstanceState struct {
	Running  bool
	ExitCode int
	Status   string // daemon status string: "created", "running", "exited", ...
}

// LogOptions selects which streams and how much tail to fetch.
// Tail <= 0 fetches everything.
type LogOptions struct {
	Stdout bool
	Stderr bool
	Tail   int
}

// Runtime is the capability surface the orchestrators consume. One
// implementation wraps the Docker daemon; tests use an in-memory fake.
type Runtime interface {
	// EnsureImage makes the image available locally, pulling if absent.
	EnsureImage(ctx context.Context, ref string) error

	// Launch creates and starts an instance, returning its id.
	Launch(ctx context.Context, spec InstanceSpec) (string, error)

	// Wait blocks until the instance exits and returns its exit code.
	// Returns ErrWaitTimeout when the instance outlives the budget.
	Wait(ctx context.Context, id string, timeout time.Duration) (int, error)

	// Logs fetches instance output. Multiplexed streams are demuxed.
	Logs(ctx context.Context, id string, opts LogOptions) (string, error)

	// Inspect returns the current state of an instance.
	// Returns ErrNotFound if the instance does not exist.
	Inspect(ctx context.Context, id string) (InstanceState, error)

	// Stop stops a running instance. Returns nil if already stopped
	// or already gone.
	Stop(ctx context.Context, id string) error

	// Remove force-removes an instance. Returns nil if already removed.
	Remove(ctx context.Context, id string) error

	// RemoveByName stops and removes any instance with the given name.
	// Used to clear a deterministic name slot before relaunching it.
	RemoveByName(ctx context.Context, name string) error

	// Close releases any resources held by the runtime.
	Close() error
}
