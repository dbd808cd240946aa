package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinfra/run-tests/proc"
)

// fakeRunner is a scripted proc.Runner for exercising phase logic without
// real subprocesses.
type fakeRunner struct {
	mu      sync.Mutex
	onPath  map[string]string
	results []proc.Result
	runErr  error
	calls   []proc.Command
	onRun   func(proc.Command)
}

func (f *fakeRunner) Run(_ context.Context, cmd proc.Command) (proc.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if f.onRun != nil {
		f.onRun(cmd)
	}
	if f.runErr != nil {
		return proc.Result{}, f.runErr
	}
	if len(f.results) == 0 {
		return proc.Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) LookPath(name string) (string, bool) {
	path, ok := f.onPath[name]
	return path, ok
}

func (f *fakeRunner) runCalls() []proc.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proc.Command(nil), f.calls...)
}

// writeLocatorTool creates packages/<pkg>/tools/vswhere.exe beneath root.
func writeLocatorTool(t *testing.T, root, pkg string) string {
	t.Helper()
	dir := filepath.Join(root, pkg, "tools")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "vswhere.exe")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o755))
	return path
}

func TestLocate_RunnerOnPath(t *testing.T) {
	fake := &fakeRunner{onPath: map[string]string{
		DefaultRunnerBinary: "/usr/local/bin/vstest.console.exe",
	}}
	loc, err := NewLocator(fake).Locate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourcePath, loc.Source)
	assert.Equal(t, "/usr/local/bin/vstest.console.exe", loc.Path)
	assert.Empty(t, fake.runCalls(), "fallback locator tool must not be invoked when the runner is on the path")
}

func TestLocate_LocatorToolMissing(t *testing.T) {
	fake := &fakeRunner{}
	locator := NewLocator(fake).WithPackageRoots(filepath.Join(t.TempDir(), "packages"))

	_, err := locator.Locate(context.Background())
	require.ErrorIs(t, err, ErrRunnerNotFound)
	assert.Contains(t, err.Error(), "locator tool missing")
}

func TestLocate_NoMatchingInstallation(t *testing.T) {
	root := t.TempDir()
	writeLocatorTool(t, root, "vswhere.2.8.4")

	fake := &fakeRunner{results: []proc.Result{{ExitCode: 0, Stdout: "\n"}}}
	locator := NewLocator(fake).WithPackageRoots(root)

	_, err := locator.Locate(context.Background())
	require.ErrorIs(t, err, ErrRunnerNotFound)
	assert.Contains(t, err.Error(), "no matching installation found")
}

func TestLocate_RunnerMissingAtExpectedLocation(t *testing.T) {
	root := t.TempDir()
	writeLocatorTool(t, root, "vswhere.2.8.4")
	install := t.TempDir() // empty installation dir, runner sub-path absent

	fake := &fakeRunner{results: []proc.Result{{ExitCode: 0, Stdout: install + "\n"}}}
	locator := NewLocator(fake).WithPackageRoots(root)

	_, err := locator.Locate(context.Background())
	require.ErrorIs(t, err, ErrRunnerNotFound)
	assert.Contains(t, err.Error(), "not found at expected location")
}

func TestLocate_ViaLocatorTool(t *testing.T) {
	root := t.TempDir()
	toolPath := writeLocatorTool(t, root, "vswhere.2.8.4")

	install := t.TempDir()
	runnerPath := filepath.Join(install, runnerSubPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(runnerPath), 0o755))
	require.NoError(t, os.WriteFile(runnerPath, []byte{}, 0o755))

	fake := &fakeRunner{results: []proc.Result{{ExitCode: 0, Stdout: install + "\n"}}}
	locator := NewLocator(fake).WithPackageRoots(root)

	loc, err := locator.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLocator, loc.Source)
	assert.Equal(t, runnerPath, loc.Path)

	calls := fake.runCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, toolPath, calls[0].Name)
	assert.Contains(t, calls[0].Args, "-latest")
	assert.Contains(t, calls[0].Args, testToolsComponent)
	assert.Contains(t, calls[0].Args, "installationPath")
}

func TestLocate_PicksFirstLocatorToolInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writeLocatorTool(t, root, "vswhere.2.8.4")
	older := writeLocatorTool(t, root, "vswhere.2.5.1")

	fake := &fakeRunner{results: []proc.Result{{ExitCode: 1}}}
	locator := NewLocator(fake).WithPackageRoots(root)

	_, err := locator.Locate(context.Background())
	require.ErrorIs(t, err, ErrRunnerNotFound)

	calls := fake.runCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, older, calls[0].Name, "lexically first package wins")
}
