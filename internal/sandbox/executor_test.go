package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drydock-dev/drydock/internal/runtime"
)

// fakeRuntime implements runtime.Runtime against in-memory state, with
// behavior knobs for the failure paths.
type fakeRuntime struct {
	mu sync.Mutex

	ensureImageErr error
	launchErr      error

	exits    []int   // Wait results, consumed in call order (default 0)
	waitErrs []error // parallel to exits, nil entries succeed
	waits    int

	stdout  string // returned for stdout-only log fetches
	stderr  string // returned for stderr-only log fetches
	logsErr error

	crashed    bool  // Inspect reports the container as not running
	inspectErr error

	bindPorts bool // Launch binds the spec's host ports like a real container

	launched      []runtime.InstanceSpec
	images        []string
	stopped       []string
	removed       []string
	removedByName []string
	listeners     map[string][]net.Listener
}

// Compile-time check.
var _ runtime.Runtime = (*fakeRuntime)(nil)

func (f *fakeRuntime) EnsureImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, ref)
	return f.ensureImageErr
}

func (f *fakeRuntime) Launch(_ context.Context, spec runtime.InstanceSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return "", f.launchErr
	}
	f.launched = append(f.launched, spec)
	id := fmt.Sprintf("fake-%d", len(f.launched))

	if f.bindPorts {
		if f.listeners == nil {
			f.listeners = map[string][]net.Listener{}
		}
		for _, p := range spec.Ports {
			l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p.HostPort)))
			if err != nil {
				return "", err
			}
			f.listeners[id] = append(f.listeners[id], l)
		}
	}
	return id, nil
}

func (f *fakeRuntime) Wait(_ context.Context, _ string, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.waits
	f.waits++
	exit := 0
	if i < len(f.exits) {
		exit = f.exits[i]
	}
	if i < len(f.waitErrs) && f.waitErrs[i] != nil {
		return 0, f.waitErrs[i]
	}
	return exit, nil
}

func (f *fakeRuntime) Logs(_ context.Context, _ string, opts runtime.LogOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logsErr != nil {
		return "", f.logsErr
	}
	switch {
	case opts.Stdout && !opts.Stderr:
		return f.stdout, nil
	case opts.Stderr && !opts.Stdout:
		return f.stderr, nil
	default:
		return f.stdout + f.stderr, nil
	}
}

func (f *fakeRuntime) Inspect(_ context.Context, _ string) (runtime.InstanceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inspectErr != nil {
		return runtime.InstanceState{}, f.inspectErr
	}
	if f.crashed {
		return runtime.InstanceState{Running: false, ExitCode: 1, Status: "exited"}, nil
	}
	return runtime.InstanceState{Running: true, Status: "running"}, nil
}

func (f *fakeRuntime) Stop(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	f.closeListeners(id)
	return nil
}

func (f *fakeRuntime) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	f.closeListeners(id)
	return nil
}

func (f *fakeRuntime) RemoveByName(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedByName = append(f.removedByName, name)
	return nil
}

func (f *fakeRuntime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.listeners {
		f.closeListeners(id)
	}
	return nil
}

// closeListeners releases the fake's port binds. Callers hold f.mu.
func (f *fakeRuntime) closeListeners(id string) {
	for _, l := range f.listeners[id] {
		l.Close()
	}
	delete(f.listeners, id)
}

func TestRun_Success(t *testing.T) {
	rt := &fakeRuntime{stdout: "hi\n"}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	res := ex.Run(context.Background(), Bundle{Files: map[string]string{"main.py": "print('hi')"}}, nil)

	assert.Equal(t, ExecSuccess, res.Status)
	assert.Contains(t, res.Stdout, "hi")
	assert.Equal(t, LangPython, res.Language)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)

	// No dependencies, so only the execution container: network off,
	// read-only mount.
	require.Len(t, rt.launched, 1)
	assert.True(t, rt.launched[0].NetworkDisabled)
	require.Len(t, rt.launched[0].Mounts, 1)
	assert.True(t, rt.launched[0].Mounts[0].ReadOnly)
	assert.Equal(t, "python main.py", rt.launched[0].Command)
	assert.Equal(t, []string{"python:3.11-slim"}, rt.images)
	assert.Len(t, rt.removed, 1)
}

func TestRun_TwoPhases(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"main.py":          "import flask\n",
		"requirements.txt": "flask==3.0\n",
	}}
	res := ex.Run(context.Background(), bundle, nil)

	assert.Equal(t, ExecSuccess, res.Status)
	require.Len(t, rt.launched, 2)

	install, exec := rt.launched[0], rt.launched[1]
	assert.Equal(t, "pip install -q -r requirements.txt", install.Command)
	assert.False(t, install.NetworkDisabled)
	assert.False(t, install.Mounts[0].ReadOnly)
	assert.True(t, exec.NetworkDisabled)
	assert.True(t, exec.Mounts[0].ReadOnly)

	// Both containers torn down.
	assert.Len(t, rt.removed, 2)
}

func TestRun_InstallFailure(t *testing.T) {
	rt := &fakeRuntime{
		exits:  []int{1},
		stderr: "ERROR: No matching distribution found for nosuchpkg==99\n",
	}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"main.py":          "print('never runs')",
		"requirements.txt": "nosuchpkg==99\n",
	}}
	res := ex.Run(context.Background(), bundle, nil)

	assert.Equal(t, ExecError, res.Status)
	assert.Equal(t, "Dependency installation failed.", res.Message)
	assert.NotEmpty(t, res.Stderr)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 1, *res.ExitCode)

	// The run phase never started.
	assert.Len(t, rt.launched, 1)
}

func TestRun_InstallTimeout(t *testing.T) {
	rt := &fakeRuntime{waitErrs: []error{runtime.ErrWaitTimeout}}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"main.py":          "print('x')",
		"requirements.txt": "torch\n",
	}}
	res := ex.Run(context.Background(), bundle, nil)

	assert.Equal(t, ExecTimeout, res.Status)
	assert.Equal(t, "Install timed out after 60 seconds.", res.Message)
	assert.Len(t, rt.removed, 1)
}

func TestRun_ExecuteTimeout(t *testing.T) {
	rt := &fakeRuntime{waitErrs: []error{runtime.ErrWaitTimeout}}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	res := ex.Run(context.Background(), Bundle{Files: map[string]string{"main.py": "while True: pass"}}, nil)

	assert.Equal(t, ExecTimeout, res.Status)
	assert.Equal(t, "Execution timed out after 5 minutes.", res.Message)
	assert.Len(t, rt.removed, 1)
}

func TestRun_SkippedFrontendManifest(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"react": "^18.0.0"}}`,
		"src/App.js":   "export default function App() {}",
	}}

	assert.False(t, ExecutionSupported(bundle, nil))

	res := ex.Run(context.Background(), bundle, nil)
	assert.Equal(t, ExecSkipped, res.Status)
	assert.Contains(t, res.Message, "Only Python and Node.js are supported")
	assert.Empty(t, rt.launched)
}

func TestRun_SkippedFrontendManifest_PlanDoesNotOverride(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"next": "14.0.0"}}`,
		"index.js":     "console.log('x')",
	}}
	plan := &Plan{Language: "JavaScript"}

	res := ex.Run(context.Background(), bundle, plan)
	assert.Equal(t, ExecSkipped, res.Status)
	assert.Empty(t, rt.launched)
}

func TestRun_SkippedPlanFramework(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{"main.py": "print('x')"}}
	plan := &Plan{Language: "Python", Framework: "React Native"}

	res := ex.Run(context.Background(), bundle, plan)
	assert.Equal(t, ExecSkipped, res.Status)
	assert.Contains(t, res.Message, "UI-based applications (React Native)")
	assert.Equal(t, LangPython, res.Language)
	assert.Empty(t, rt.launched)
}

func TestRun_NoEntryFile(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	res := ex.Run(context.Background(), Bundle{Files: map[string]string{"test_app.py": "assert True"}}, nil)

	assert.Equal(t, ExecError, res.Status)
	assert.Equal(t, "No executable entry file found for Python.", res.Message)
	assert.Empty(t, rt.launched)
}

func TestRun_DaemonUnavailable(t *testing.T) {
	rt := &fakeRuntime{launchErr: runtime.ErrDaemonUnavailable}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	res := ex.Run(context.Background(), Bundle{Files: map[string]string{"main.py": "print('x')"}}, nil)

	assert.Equal(t, ExecError, res.Status)
	assert.Equal(t, "Docker is not running. Please start Docker and try again.", res.Message)
}

func TestRun_CleansUpScratchDir(t *testing.T) {
	scratch := t.TempDir()
	rt := &fakeRuntime{waitErrs: []error{fmt.Errorf("daemon hiccup")}}
	ex := NewExecutor(rt, slog.Default(), scratch)

	res := ex.Run(context.Background(), Bundle{Files: map[string]string{"main.py": "print('x')"}}, nil)
	assert.Equal(t, ExecError, res.Status)
	assert.Equal(t, "Execution failed unexpectedly.", res.Message)

	// Scratch directory and container both gone despite the failure.
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Len(t, rt.removed, 1)
}

func TestRun_TypeScriptEntry(t *testing.T) {
	rt := &fakeRuntime{}
	ex := NewExecutor(rt, slog.Default(), t.TempDir())

	bundle := Bundle{Files: map[string]string{
		"package.json": `{"main": "server.ts"}`,
		"server.ts":    "console.log('up')",
	}}
	plan := &Plan{Language: "TypeScript"}

	res := ex.Run(context.Background(), bundle, plan)
	assert.Equal(t, ExecSuccess, res.Status)

	// package.json but no dependencies still means an npm install phase.
	require.Len(t, rt.launched, 2)
	assert.Equal(t, "npm install --silent", rt.launched[0].Command)
	assert.Equal(t, "npx ts-node server.ts", rt.launched[1].Command)
	assert.Equal(t, "node:18-slim", rt.launched[1].Image)
}
