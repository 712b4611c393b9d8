package sandbox

// ABOUTME: Preview hosting: long-lived containers behind allocated host
// ABOUTME: ports, with TTL lifecycle and readiness promotion.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/drydock-dev/drydock/internal/runtime"
)

const (
	// startPause gives the container a moment before the crash check;
	// instant failures are far more useful reported from Start than
	// from a later status poll.
	startPause = 3 * time.Second

	initialLogExcerpt = 1000
	crashLogExcerpt   = 500
	pollLogTail       = 50

	// DefaultLogTail is how many lines log fetches return by default.
	DefaultLogTail = 100

	errExcerptLimit = 200
)

// PreviewState classifies a preview operation outcome.
type PreviewState string

const (
	PreviewStarting       PreviewState = "starting"
	PreviewRunning        PreviewState = "running"
	PreviewError          PreviewState = "error"
	PreviewUnsupported    PreviewState = "unsupported"
	PreviewAlreadyRunning PreviewState = "already_running"
	PreviewStopped        PreviewState = "stopped"
	PreviewExpired        PreviewState = "expired"
)

// PreviewOutcome is what preview operations report back. Log excerpts
// ride along so callers can render diagnostics without a second call.
type PreviewOutcome struct {
	Status        PreviewState `json:"status"`
	URL           string       `json:"url,omitempty"`
	ContainerID   string       `json:"containerId,omitempty"`
	Port          int          `json:"port,omitempty"`
	Message       string       `json:"message,omitempty"`
	TimeRemaining string       `json:"timeRemaining,omitempty"`
	Language      Language     `json:"language,omitempty"`
	Framework     Framework    `json:"framework,omitempty"`
	Logs          string       `json:"logs,omitempty"`
	Ready         bool         `json:"ready"`
}

// Manager hosts preview containers and owns their lifecycle.
type Manager struct {
	rt          runtime.Runtime
	registry    *Registry
	probe       *Probe
	logger      *slog.Logger
	scratchRoot string
	startPause  time.Duration
}

// NewManager wires a preview manager. Scratch directories go under
// scratchRoot, or the system temp dir when empty.
func NewManager(rt runtime.Runtime, reg *Registry, probe *Probe, logger *slog.Logger, scratchRoot string) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if probe == nil {
		probe = NewProbe("")
	}
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Manager{
		rt:          rt,
		registry:    reg,
		probe:       probe,
		logger:      logger,
		scratchRoot: scratchRoot,
		startPause:  startPause,
	}
}

// Start launches a preview container for the bundle and returns its
// URL. A session holds at most one active preview; no registry record
// is created on any failure path before a successful launch.
func (m *Manager) Start(ctx context.Context, bundle Bundle, plan *Plan, sessionID string, ttlMinutes int) PreviewOutcome {
	if sessionID == "" {
		sessionID = "default"
	}
	if ttlMinutes <= 0 {
		ttlMinutes = m.registry.cfg.DefaultTTL
	}

	m.registry.PruneStaleTerminal()

	if existing, ok := m.registry.GetBySession(sessionID); ok {
		return PreviewOutcome{
			Status:        PreviewAlreadyRunning,
			URL:           existing.URL,
			ContainerID:   existing.ContainerID,
			Port:          existing.Port,
			TimeRemaining: existing.FormatRemaining(),
			Message:       "Preview already running. Stop it first to start a new one.",
			Language:      existing.Language,
			Framework:     existing.Framework,
		}
	}

	lang, ok := DetectLanguage(bundle, plan, ModePreview)
	if !ok {
		return PreviewOutcome{
			Status:  PreviewUnsupported,
			Message: "Could not detect language. Only Python and Node.js are supported.",
		}
	}

	fw, ok := DetectFramework(bundle, plan)
	if !ok {
		return PreviewOutcome{
			Status:   PreviewUnsupported,
			Language: lang,
			Message:  "No web framework detected. Preview hosting requires a web application (FastAPI, Flask, Express, etc.).",
		}
	}

	port, err := m.registry.AllocatePort()
	if err != nil {
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   "No available ports. Too many preview containers running.",
		}
	}
	internalPort := fw.InternalPort()

	dir, err := bundle.Materialize(m.scratchRoot, "preview")
	if err != nil {
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   fmt.Sprintf("Failed to write code bundle: %v", err),
		}
	}
	// The directory is the container's bind mount; it must outlive this
	// call once the launch sticks.
	launched := false
	defer func() {
		if !launched {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				m.logger.Warn("remove scratch dir", "dir", dir, "error", rmErr)
			}
		}
	}()

	image := lang.Image()
	if err := m.rt.EnsureImage(ctx, image); err != nil {
		return m.failure(lang, fw, port, err)
	}

	runCmd := PreviewRunCommand(bundle, lang, fw)
	command := runCmd
	if installCmd := PreviewInstallCommand(bundle, lang, fw); installCmd != "" {
		command = installCmd + " && " + runCmd
	}

	name := ContainerName(sessionID, port)
	// A crashed earlier preview can still squat the name.
	if err := m.rt.RemoveByName(ctx, name); err != nil {
		m.logger.Debug("remove stale container", "name", name, "error", err)
	}

	m.logger.Debug("starting preview", "session", sessionID, "framework", fw, "port", port, "command", command)

	id, err := m.rt.Launch(ctx, runtime.InstanceSpec{
		Name:    name,
		Image:   image,
		Command: command,
		WorkDir: workDir,
		Mounts:  []runtime.MountSpec{{Source: dir, Target: workDir}},
		Ports:   []runtime.PortMapping{{HostPort: port, InstancePort: internalPort, Protocol: "tcp"}},
		Env:     PreviewEnv(fw, internalPort),
		Limits:  lang.Limits(),
	})
	if err != nil {
		return m.failure(lang, fw, port, err)
	}

	sleepCtx(ctx, m.startPause)

	state, err := m.rt.Inspect(ctx, id)
	if err != nil || !state.Running {
		logs, logErr := m.rt.Logs(ctx, id, runtime.LogOptions{Stdout: true, Stderr: true})
		if logErr != nil {
			m.logger.Debug("fetch crash logs", "error", logErr)
		}
		if rmErr := m.rt.Remove(ctx, id); rmErr != nil {
			m.logger.Debug("remove crashed container", "error", rmErr)
		}
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   fmt.Sprintf("Container failed to start. Logs:\n%s", excerptHead(logs, crashLogExcerpt)),
		}
	}

	launched = true
	url := fmt.Sprintf("http://localhost:%d", port)
	initialLogs, err := m.rt.Logs(ctx, id, runtime.LogOptions{Stdout: true, Stderr: true})
	if err != nil {
		m.logger.Debug("fetch initial logs", "error", err)
	}

	m.registry.Register(&PreviewInstance{
		ContainerID:   id,
		ContainerName: name,
		Port:          port,
		InternalPort:  internalPort,
		StartTime:     time.Now(),
		TTLMinutes:    ttlMinutes,
		SessionID:     sessionID,
		Language:      lang,
		Framework:     fw,
		URL:           url,
		Status:        StatusStarting,
	})

	if m.probe.Quick(port) {
		m.registry.UpdateStatus(id, StatusRunning)
		return PreviewOutcome{
			Status:        PreviewRunning,
			URL:           url,
			ContainerID:   id,
			Port:          port,
			TimeRemaining: fmt.Sprintf("%dm 0s", ttlMinutes),
			Message:       fmt.Sprintf("Preview ready! Your %s app is running.", fw),
			Language:      lang,
			Framework:     fw,
			Logs:          excerptTail(initialLogs, initialLogExcerpt),
			Ready:         true,
		}
	}

	message := "Container started. Installing dependencies..."
	if fw.SlowInstall() {
		message = fmt.Sprintf(
			"Container started. Installing %s dependencies...\nThis typically takes 3-5 minutes. Check status to see when it is ready.", fw)
	}
	return PreviewOutcome{
		Status:        PreviewStarting,
		URL:           url,
		ContainerID:   id,
		Port:          port,
		TimeRemaining: fmt.Sprintf("%dm 0s", ttlMinutes),
		Message:       message,
		Language:      lang,
		Framework:     fw,
		Logs:          excerptTail(initialLogs, initialLogExcerpt),
		Ready:         false,
	}
}

// Stop tears down a preview container. Idempotent: unknown and already
// stopped containers report stopped, never an error.
func (m *Manager) Stop(ctx context.Context, containerID string) PreviewOutcome {
	if m.registry.Stop(ctx, containerID) {
		return PreviewOutcome{
			Status:      PreviewStopped,
			ContainerID: containerID,
			Message:     "Preview stopped successfully.",
		}
	}
	return PreviewOutcome{
		Status:      PreviewStopped,
		ContainerID: containerID,
		Message:     "Container already stopped.",
	}
}

// Status reports the session's current preview, reconciling the record
// against the live container and promoting starting to running once the
// port responds. Returns ok=false when the session has no active
// preview.
func (m *Manager) Status(ctx context.Context, sessionID string) (PreviewOutcome, bool) {
	rec, ok := m.registry.GetBySession(sessionID)
	if !ok {
		return PreviewOutcome{}, false
	}

	if rec.Expired() {
		m.registry.Stop(ctx, rec.ContainerID)
		m.registry.UpdateStatus(rec.ContainerID, StatusExpired)
		return PreviewOutcome{
			Status:      PreviewExpired,
			ContainerID: rec.ContainerID,
			Message:     "Preview has expired and was stopped.",
		}, true
	}

	state, err := m.rt.Inspect(ctx, rec.ContainerID)
	if errors.Is(err, runtime.ErrNotFound) {
		m.registry.UpdateStatus(rec.ContainerID, StatusStopped)
		return PreviewOutcome{
			Status:      PreviewStopped,
			ContainerID: rec.ContainerID,
			Message:     "Container no longer exists.",
		}, true
	}
	if err != nil {
		// Daemon check failed; report what the registry believes.
		m.logger.Debug("inspect preview", "container", shortID(rec.ContainerID), "error", err)
		return PreviewOutcome{
			Status:        PreviewState(rec.Status),
			URL:           rec.URL,
			ContainerID:   rec.ContainerID,
			Port:          rec.Port,
			TimeRemaining: rec.FormatRemaining(),
			Language:      rec.Language,
			Framework:     rec.Framework,
			Ready:         rec.Status == StatusRunning,
		}, true
	}

	if !state.Running {
		logs, logErr := m.rt.Logs(ctx, rec.ContainerID, runtime.LogOptions{Stdout: true, Stderr: true, Tail: pollLogTail})
		if logErr != nil {
			m.logger.Debug("fetch crash logs", "error", logErr)
		}
		m.registry.UpdateStatus(rec.ContainerID, StatusError)
		return PreviewOutcome{
			Status:      PreviewError,
			ContainerID: rec.ContainerID,
			Message:     "Container stopped unexpectedly.",
			Logs:        logs,
		}, true
	}

	logs, logErr := m.rt.Logs(ctx, rec.ContainerID, runtime.LogOptions{Stdout: true, Stderr: true, Tail: pollLogTail})
	if logErr != nil {
		m.logger.Debug("fetch poll logs", "error", logErr)
	}
	ready := m.probe.Quick(rec.Port)

	out := PreviewOutcome{
		URL:           rec.URL,
		ContainerID:   rec.ContainerID,
		Port:          rec.Port,
		TimeRemaining: rec.FormatRemaining(),
		Language:      rec.Language,
		Framework:     rec.Framework,
		Logs:          logs,
		Ready:         ready,
	}

	switch {
	case ready && rec.Status == StatusStarting:
		m.registry.UpdateStatus(rec.ContainerID, StatusRunning)
		out.Status = PreviewRunning
		out.Message = "App is ready! Click the URL to open."
	case ready:
		out.Status = PreviewRunning
	default:
		out.Status = PreviewStarting
		out.Message = "Still starting... Dependencies may be installing."
	}
	return out, true
}

// Logs fetches recent container output. Errors come back as the string
// body; log retrieval is diagnostic, not a failure mode of its own.
func (m *Manager) Logs(ctx context.Context, containerID string, tail int) string {
	if tail <= 0 {
		tail = DefaultLogTail
	}
	logs, err := m.rt.Logs(ctx, containerID, runtime.LogOptions{Stdout: true, Stderr: true, Tail: tail})
	if err != nil {
		return fmt.Sprintf("Error getting logs: %v", err)
	}
	return logs
}

// WaitReady blocks until the session's preview answers on its port or
// the timeout lapses, reporting the final outcome either way.
func (m *Manager) WaitReady(ctx context.Context, sessionID string, timeout time.Duration) (PreviewOutcome, bool) {
	rec, ok := m.registry.GetBySession(sessionID)
	if !ok {
		return PreviewOutcome{}, false
	}
	m.probe.WaitReady(ctx, rec.Port, timeout)
	return m.Status(ctx, sessionID)
}

// failure converts a launch-path runtime error into the caller-facing
// outcome.
func (m *Manager) failure(lang Language, fw Framework, port int, err error) PreviewOutcome {
	switch {
	case errors.Is(err, runtime.ErrPortAllocated):
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   fmt.Sprintf("Port %d is already in use. Please try again.", port),
		}
	case errors.Is(err, runtime.ErrDaemonUnavailable):
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   "Docker is not running. Please start Docker and try again.",
		}
	default:
		return PreviewOutcome{
			Status:    PreviewError,
			Language:  lang,
			Framework: fw,
			Message:   "Failed to start preview: " + excerptHead(err.Error(), errExcerptLimit),
		}
	}
}

// sleepCtx pauses without ignoring cancellation.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// excerptHead returns at most n bytes from the start of s.
func excerptHead(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}

// excerptTail returns at most n bytes from the end of s.
func excerptTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
