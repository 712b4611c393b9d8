// Package docker wraps the Docker SDK for drydock's container operations.
package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	goversion "github.com/hashicorp/go-version"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// MinEngineVersion is the oldest Docker Engine drydock is known to work
// with. Older daemons predate the container wait condition API used for
// phase timeouts.
const MinEngineVersion = "20.10.0"

// Client wraps the subset of Docker SDK methods used by drydock.
// Defined as an interface for testability — the runtime layer is unit
// tested against a mock without requiring a real Docker daemon.
type Client interface {
	// Image operations
	ImageInspect(ctx context.Context, imageID string, inspectOpts ...dockerclient.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)

	// Container lifecycle
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)

	// Connection
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

// Compile-time check: *dockerclient.Client satisfies Client interface.
var _ Client = (*dockerclient.Client)(nil)

// NewClient creates a Docker client and verifies the daemon is reachable
// and recent enough. Returns a clear error if Docker is unavailable.
func NewClient(ctx context.Context) (Client, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("connect to Docker: %w (is Docker running?)", err)
	}

	if err := checkEngineVersion(ctx, cli); err != nil {
		_ = cli.Close()
		return nil, err
	}

	return cli, nil
}

// checkEngineVersion rejects daemons older than MinEngineVersion.
// Unparseable versions (dev builds report strings like "dev" or
// "library-import") are allowed through.
func checkEngineVersion(ctx context.Context, cli Client) error {
	info, err := cli.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("query Docker version: %w", err)
	}

	have, err := goversion.NewVersion(info.Version)
	if err != nil {
		return nil
	}

	min := goversion.Must(goversion.NewVersion(MinEngineVersion))
	if have.LessThan(min) {
		return fmt.Errorf("docker engine %s is too old, drydock requires %s or newer", info.Version, MinEngineVersion)
	}

	return nil
}
