package runtests

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinfra/run-tests/ci"
	"github.com/devinfra/run-tests/proc"
	"github.com/devinfra/run-tests/runner"
	"github.com/devinfra/run-tests/types"
)

type fakePhase struct {
	result types.PhaseResult
	calls  int
}

func (f *fakePhase) Run(context.Context) types.PhaseResult {
	f.calls++
	return f.result
}

func phaseResult(phase types.Phase, status types.PhaseStatus) types.PhaseResult {
	return types.PhaseResult{Phase: phase, Status: status}
}

func testOrchestrator(cfg *Config, phases map[types.Phase]PhaseRunner) *Orchestrator {
	return newWithPhases(cfg, "orchestrator-test-run", nil, phases)
}

func TestOrchestrator_AllPhasesPass(t *testing.T) {
	unit := &fakePhase{result: phaseResult(types.PhaseUnit, types.PhaseStatusPass)}
	integration := &fakePhase{result: phaseResult(types.PhaseIntegration, types.PhaseStatusPass)}

	o := testOrchestrator(
		&Config{Phases: []types.Phase{types.PhaseUnit, types.PhaseIntegration}},
		map[types.Phase]PhaseRunner{types.PhaseUnit: unit, types.PhaseIntegration: integration},
	)
	err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, unit.calls)
	assert.Equal(t, 1, integration.calls)
	assert.Len(t, o.Results(), 2)
}

func TestOrchestrator_UnitFailureDoesNotSkipIntegration(t *testing.T) {
	unit := &fakePhase{result: phaseResult(types.PhaseUnit, types.PhaseStatusFail)}
	integration := &fakePhase{result: phaseResult(types.PhaseIntegration, types.PhaseStatusPass)}

	o := testOrchestrator(
		&Config{Phases: []types.Phase{types.PhaseUnit, types.PhaseIntegration}},
		map[types.Phase]PhaseRunner{types.PhaseUnit: unit, types.PhaseIntegration: integration},
	)
	err := o.Run(context.Background())

	assert.True(t, IsTestFailureError(err), "a failed phase must surface as TestFailureError, got %v", err)
	assert.Equal(t, 1, integration.calls, "integration must still run after a unit failure")
}

func TestOrchestrator_IntegrationFailureFailsRun(t *testing.T) {
	unit := &fakePhase{result: phaseResult(types.PhaseUnit, types.PhaseStatusPass)}
	integration := &fakePhase{result: phaseResult(types.PhaseIntegration, types.PhaseStatusFail)}

	o := testOrchestrator(
		&Config{Phases: []types.Phase{types.PhaseUnit, types.PhaseIntegration}},
		map[types.Phase]PhaseRunner{types.PhaseUnit: unit, types.PhaseIntegration: integration},
	)
	err := o.Run(context.Background())
	assert.True(t, IsTestFailureError(err))
}

func TestOrchestrator_SkippedIntegrationCountsAsSuccess(t *testing.T) {
	integration := &fakePhase{result: phaseResult(types.PhaseIntegration, types.PhaseStatusSkip)}

	o := testOrchestrator(
		&Config{Phases: []types.Phase{types.PhaseIntegration}},
		map[types.Phase]PhaseRunner{types.PhaseIntegration: integration},
	)
	err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, integration.calls)
}

func TestOrchestrator_OnlySelectedPhasesRun(t *testing.T) {
	unit := &fakePhase{result: phaseResult(types.PhaseUnit, types.PhaseStatusPass)}
	integration := &fakePhase{result: phaseResult(types.PhaseIntegration, types.PhaseStatusPass)}

	o := testOrchestrator(
		&Config{Phases: []types.Phase{types.PhaseUnit}},
		map[types.Phase]PhaseRunner{types.PhaseUnit: unit, types.PhaseIntegration: integration},
	)
	err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, unit.calls)
	assert.Equal(t, 0, integration.calls)
}

// scriptedProcRunner makes the unit phase runnable end to end without real
// subprocesses.
type scriptedProcRunner struct {
	mu       sync.Mutex
	exitCode int
	calls    int
}

func (s *scriptedProcRunner) Run(context.Context, proc.Command) (proc.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return proc.Result{ExitCode: s.exitCode}, nil
}

func (s *scriptedProcRunner) LookPath(string) (string, bool) {
	return "/opt/vstest/vstest.console.exe", true
}

// End-to-end shape of a unit-only run with defaults and one discovered
// artifact; the runner's exit status alone decides the outcome.
func TestOrchestrator_UnitOnlyEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeTestArtifact(t, root)

	for _, tc := range []struct {
		name      string
		exitCode  int
		wantsFail bool
	}{
		{name: "runner exits zero", exitCode: 0, wantsFail: false},
		{name: "runner exits one", exitCode: 1, wantsFail: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			procRunner := &scriptedProcRunner{exitCode: tc.exitCode}
			unit := runner.NewUnitPhase(runner.UnitPhaseConfig{
				BuildConfiguration: "Debug",
				Platform:           "x86",
				TestRoot:           root,
			}, runner.NewLocator(procRunner), procRunner, ci.JobContext{}, nil)

			o := testOrchestrator(
				&Config{Phases: []types.Phase{types.PhaseUnit}},
				map[types.Phase]PhaseRunner{types.PhaseUnit: unit},
			)
			err := o.Run(context.Background())

			if tc.wantsFail {
				assert.True(t, IsTestFailureError(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, procRunner.calls)
		})
	}
}

func writeTestArtifact(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "Foo.Tests", "bin", "Debug")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Foo.Tests.dll"), []byte{}, 0o644))
}
