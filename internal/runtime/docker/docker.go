// Package docker implements the runtime.Runtime interface using the Docker SDK.
// ABOUTME: Wraps the SDK client for image pulls, container launch/wait/logs,
// ABOUTME: and idempotent teardown with typed daemon error classification.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"golang.org/x/sync/singleflight"

	"github.com/drydock-dev/drydock/internal/docker"
	"github.com/drydock-dev/drydock/internal/runtime"
)

// stopGraceSeconds is how long a container gets to exit cleanly before
// the daemon kills it.
const stopGraceSeconds = 2

// Runtime implements runtime.Runtime using the Docker SDK.
type Runtime struct {
	client docker.Client
	pulls  singleflight.Group
}

// Compile-time check.
var _ runtime.Runtime = (*Runtime)(nil)

// New creates a Runtime and verifies the Docker daemon is reachable.
func New(ctx context.Context) (*Runtime, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("docker is not installed, install it from https://docs.docker.com/get-docker/")
	}

	cli, err := docker.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: docker daemon is not responding, start Docker Desktop or run 'sudo systemctl start docker'", runtime.ErrDaemonUnavailable)
	}

	return &Runtime{client: cli}, nil
}

// NewFromClient wraps an existing client. Used by tests.
func NewFromClient(cli docker.Client) *Runtime {
	return &Runtime{client: cli}
}

// EnsureImage pulls the image if it is not present locally. Concurrent
// pulls of the same ref are collapsed into one daemon request.
func (r *Runtime) EnsureImage(ctx context.Context, ref string) error {
	_, err := r.client.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", ref, classify(err))
	}

	_, err, _ = r.pulls.Do(ref, func() (any, error) {
		rc, pullErr := r.client.ImagePull(ctx, ref, image.PullOptions{})
		if pullErr != nil {
			return nil, pullErr
		}
		defer rc.Close() //nolint:errcheck // drain-and-close of pull progress stream
		_, copyErr := io.Copy(io.Discard, rc)
		return nil, copyErr
	})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, classify(err))
	}
	return nil
}

// Launch creates and starts a container from the given spec. The spec
// command runs under `sh -c` as the container's main process. A failed
// start removes the created container so the name slot stays free.
func (r *Runtime) Launch(ctx context.Context, spec runtime.InstanceSpec) (string, error) {
	portBindings, exposedPorts := convertPorts(spec.Ports)

	containerConfig := &container.Config{
		Image:        spec.Image,
		Cmd:          []string{"sh", "-c", spec.Command},
		WorkingDir:   spec.WorkDir,
		Env:          convertEnv(spec.Env),
		ExposedPorts: exposedPorts,
	}

	hostConfig := &container.HostConfig{
		Mounts:       convertMounts(spec.Mounts),
		PortBindings: portBindings,
		Resources: container.Resources{
			Memory:    spec.Limits.MemoryBytes,
			CPUPeriod: spec.Limits.CPUPeriod,
			CPUQuota:  spec.Limits.CPUQuota,
		},
	}
	if spec.NetworkDisabled {
		hostConfig.NetworkMode = network.NetworkNone
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container: %w", classify(err))
	}

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = r.Remove(ctx, resp.ID)
		return "", fmt.Errorf("start container: %w", classify(err))
	}

	return resp.ID, nil
}

// Wait blocks until the container stops running, up to timeout.
func (r *Runtime) Wait(ctx context.Context, id string, timeout time.Duration) (int, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitCh, errCh := r.client.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)
	select {
	case resp := <-waitCh:
		if resp.Error != nil {
			return -1, fmt.Errorf("wait for container: %s", resp.Error.Message)
		}
		return int(resp.StatusCode), nil
	case err := <-errCh:
		if waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return -1, runtime.ErrWaitTimeout
		}
		return -1, fmt.Errorf("wait for container: %w", classify(err))
	}
}

// Logs fetches container output. The requested streams are demuxed from
// the daemon's multiplexed format into a single interleaved string.
func (r *Runtime) Logs(ctx context.Context, id string, opts runtime.LogOptions) (string, error) {
	tail := "all"
	if opts.Tail > 0 {
		tail = strconv.Itoa(opts.Tail)
	}

	rc, err := r.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: opts.Stdout,
		ShowStderr: opts.Stderr,
		Tail:       tail,
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", runtime.ErrNotFound
		}
		return "", fmt.Errorf("fetch logs: %w", classify(err))
	}
	defer rc.Close() //nolint:errcheck // read-side close

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}
	return buf.String(), nil
}

// Inspect returns the current state of a container.
func (r *Runtime) Inspect(ctx context.Context, id string) (runtime.InstanceState, error) {
	info, err := r.client.ContainerInspect(ctx, id)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return runtime.InstanceState{}, runtime.ErrNotFound
		}
		return runtime.InstanceState{}, fmt.Errorf("inspect container: %w", classify(err))
	}

	state := runtime.InstanceState{}
	if info.State != nil {
		state.Running = info.State.Running
		state.ExitCode = info.State.ExitCode
		state.Status = string(info.State.Status)
	}
	return state, nil
}

// Stop stops a running container. Returns nil if already stopped or gone.
func (r *Runtime) Stop(ctx context.Context, id string) error {
	grace := stopGraceSeconds
	if err := r.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &grace}); err != nil {
		if cerrdefs.IsNotFound(err) || cerrdefs.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("stop container: %w", classify(err))
	}
	return nil
}

// Remove force-removes a container. Returns nil if already removed.
func (r *Runtime) Remove(ctx context.Context, id string) error {
	if err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove container: %w", classify(err))
	}
	return nil
}

// RemoveByName clears any container occupying the given name slot.
// The daemon accepts names wherever it accepts ids.
func (r *Runtime) RemoveByName(ctx context.Context, name string) error {
	_ = r.Stop(ctx, name)
	return r.Remove(ctx, name)
}

// Close releases the Docker client connection.
func (r *Runtime) Close() error {
	return r.client.Close()
}

// classify maps SDK transport failures onto the runtime sentinels so
// orchestrators can special-case them without importing the SDK.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if dockerclient.IsErrConnectionFailed(err) {
		return fmt.Errorf("%w: %v", runtime.ErrDaemonUnavailable, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "port is already allocated") {
		return fmt.Errorf("%w: %v", runtime.ErrPortAllocated, err)
	}
	return err
}

// convertMounts converts runtime.MountSpec to Docker mount.Mount.
func convertMounts(specs []runtime.MountSpec) []mount.Mount {
	if len(specs) == 0 {
		return nil
	}
	mounts := make([]mount.Mount, len(specs))
	for i, s := range specs {
		mounts[i] = mount.Mount{
			Type:     mount.TypeBind,
			Source:   s.Source,
			Target:   s.Target,
			ReadOnly: s.ReadOnly,
		}
	}
	return mounts
}

// convertPorts converts runtime.PortMapping to Docker port types.
func convertPorts(ports []runtime.PortMapping) (nat.PortMap, nat.PortSet) {
	if len(ports) == 0 {
		return nil, nil
	}

	portMap := nat.PortMap{}
	portSet := nat.PortSet{}

	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.InstancePort))
		if err != nil {
			continue // skip invalid (already validated upstream)
		}
		portMap[port] = append(portMap[port], nat.PortBinding{
			HostPort: strconv.Itoa(p.HostPort),
		})
		portSet[port] = struct{}{}
	}

	return portMap, portSet
}

// convertEnv flattens the env map into the daemon's KEY=VALUE list,
// sorted so container configs are deterministic.
func convertEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
