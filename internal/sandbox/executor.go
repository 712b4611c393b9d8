package sandbox

// ABOUTME: One-shot sandboxed execution. Installs with network and a
// ABOUTME: writable mount, executes with neither, always tears down.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/drydock-dev/drydock/internal/runtime"
)

// workDir is where the bundle is mounted inside every container.
const workDir = "/app"

// Phase timeouts. Installs get a minute; user code gets five.
const (
	installWait = 60 * time.Second
	executeWait = 300 * time.Second
)

// ExecStatus is the outcome class of a one-shot run.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	ExecError   ExecStatus = "error"
	ExecTimeout ExecStatus = "timeout"
	ExecSkipped ExecStatus = "skipped"
)

// ExecutionResult is what a one-shot run reports back. ExitCode is nil
// when no container ran to completion.
type ExecutionResult struct {
	Status   ExecStatus `json:"status"`
	Stdout   string     `json:"stdout"`
	Stderr   string     `json:"stderr"`
	ExitCode *int       `json:"exitCode"`
	Message  string     `json:"message,omitempty"`
	Language Language   `json:"language,omitempty"`
}

// Executor runs code bundles one-shot in throwaway containers.
type Executor struct {
	rt          runtime.Runtime
	logger      *slog.Logger
	scratchRoot string
}

// NewExecutor returns an executor writing scratch directories under
// scratchRoot, or the system temp dir when empty.
func NewExecutor(rt runtime.Runtime, logger *slog.Logger, scratchRoot string) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Executor{rt: rt, logger: logger, scratchRoot: scratchRoot}
}

// Run executes a bundle and captures its output. Never returns an
// error; every failure mode is folded into the result. Containers and
// the scratch directory are torn down on every exit path.
func (e *Executor) Run(ctx context.Context, bundle Bundle, plan *Plan) ExecutionResult {
	lang, ok := DetectLanguage(bundle, plan, ModeExecute)
	if !ok {
		return ExecutionResult{
			Status:  ExecSkipped,
			Message: "Execution not supported yet for this language. Only Python and Node.js are supported.",
		}
	}

	if plan != nil && plan.Framework != "" && FrontendFramework(plan.Framework) {
		return ExecutionResult{
			Status:   ExecSkipped,
			Language: lang,
			Message:  fmt.Sprintf("UI-based applications (%s) cannot be previewed. Only console output is captured.", plan.Framework),
		}
	}

	entry, ok := EntryFile(bundle, lang)
	if !ok {
		return ExecutionResult{
			Status:   ExecError,
			Language: lang,
			Message:  fmt.Sprintf("No executable entry file found for %s.", lang.Display()),
		}
	}

	dir, err := bundle.Materialize(e.scratchRoot, "sandbox")
	if err != nil {
		return ExecutionResult{
			Status:   ExecError,
			Language: lang,
			Message:  fmt.Sprintf("Failed to write code bundle: %v", err),
		}
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("remove scratch dir", "dir", dir, "error", rmErr)
		}
	}()

	// Track every container created so teardown covers all exit paths.
	var created []string
	defer func() {
		for _, id := range created {
			e.cleanup(id)
		}
	}()

	image := lang.Image()
	if err := e.rt.EnsureImage(ctx, image); err != nil {
		return e.failure(lang, err)
	}

	if installCmd := InstallCommand(bundle, lang); installCmd != "" {
		e.logger.Debug("install phase", "command", installCmd)

		id, err := e.rt.Launch(ctx, runtime.InstanceSpec{
			Image:   image,
			Command: installCmd,
			WorkDir: workDir,
			Mounts:  []runtime.MountSpec{{Source: dir, Target: workDir}},
			Limits:  lang.Limits(),
		})
		if err != nil {
			return e.failure(lang, err)
		}
		created = append(created, id)

		exit, err := e.rt.Wait(ctx, id, installWait)
		if err != nil {
			if errors.Is(err, runtime.ErrWaitTimeout) {
				return ExecutionResult{
					Status:   ExecTimeout,
					Language: lang,
					Message:  "Install timed out after 60 seconds.",
				}
			}
			return e.failure(lang, err)
		}

		stderr, logErr := e.rt.Logs(ctx, id, runtime.LogOptions{Stderr: true})
		if logErr != nil {
			e.logger.Debug("fetch install logs", "error", logErr)
		}
		if exit != 0 {
			return ExecutionResult{
				Status:   ExecError,
				Language: lang,
				Stderr:   stderr,
				ExitCode: &exit,
				Message:  "Dependency installation failed.",
			}
		}
	}

	runCmd := RunCommand(entry, lang)
	e.logger.Debug("execute phase", "command", runCmd)

	id, err := e.rt.Launch(ctx, runtime.InstanceSpec{
		Image:           image,
		Command:         runCmd,
		WorkDir:         workDir,
		Mounts:          []runtime.MountSpec{{Source: dir, Target: workDir, ReadOnly: true}},
		Limits:          lang.Limits(),
		NetworkDisabled: true,
	})
	if err != nil {
		return e.failure(lang, err)
	}
	created = append(created, id)

	exit, err := e.rt.Wait(ctx, id, executeWait)
	if err != nil {
		if errors.Is(err, runtime.ErrWaitTimeout) {
			return ExecutionResult{
				Status:   ExecTimeout,
				Language: lang,
				Message:  "Execution timed out after 5 minutes.",
			}
		}
		return e.failure(lang, err)
	}

	stdout, err := e.rt.Logs(ctx, id, runtime.LogOptions{Stdout: true})
	if err != nil {
		e.logger.Debug("fetch stdout", "error", err)
	}
	stderr, err := e.rt.Logs(ctx, id, runtime.LogOptions{Stderr: true})
	if err != nil {
		e.logger.Debug("fetch stderr", "error", err)
	}

	status := ExecSuccess
	if exit != 0 {
		status = ExecError
	}
	return ExecutionResult{
		Status:   status,
		Language: lang,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: &exit,
	}
}

// failure converts a runtime error into the caller-facing result.
func (e *Executor) failure(lang Language, err error) ExecutionResult {
	if errors.Is(err, runtime.ErrDaemonUnavailable) {
		return ExecutionResult{
			Status:   ExecError,
			Language: lang,
			Message:  "Docker is not running. Please start Docker and try again.",
		}
	}
	return ExecutionResult{
		Status:   ExecError,
		Language: lang,
		Stderr:   err.Error(),
		Message:  "Execution failed unexpectedly.",
	}
}

// cleanup force-stops and removes one container, swallowing errors.
// Uses a fresh context so teardown still runs when the caller's context
// is already cancelled.
func (e *Executor) cleanup(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := e.rt.Stop(ctx, id); err != nil {
		e.logger.Debug("stop container", "container", shortID(id), "error", err)
	}
	if err := e.rt.Remove(ctx, id); err != nil {
		e.logger.Debug("remove container", "container", shortID(id), "error", err)
	}
}
