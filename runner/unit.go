package runner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devinfra/run-tests/ci"
	"github.com/devinfra/run-tests/logging"
	"github.com/devinfra/run-tests/metrics"
	"github.com/devinfra/run-tests/proc"
	"github.com/devinfra/run-tests/types"
)

const (
	// appveyorLoggerArg makes the runner report results to the AppVeyor
	// build feed in realtime.
	appveyorLoggerArg = "/Logger:Appveyor"
	parallelArg       = "/Parallel"
	platformArgPrefix = "/Platform:"
)

// UnitPhaseConfig carries everything the unit phase needs from the resolved
// run configuration.
type UnitPhaseConfig struct {
	BuildConfiguration string
	Platform           string
	TestRoot           string
	ArtifactSuffix     string
}

// UnitPhase locates the runner, discovers matching test assemblies and runs
// them in a single runner invocation.
type UnitPhase struct {
	cfg        UnitPhaseConfig
	locator    *Locator
	runner     proc.Runner
	job        ci.JobContext
	fileLogger *logging.FileLogger
}

// NewUnitPhase wires the unit phase. fileLogger may be nil, in which case
// captured output is not persisted.
func NewUnitPhase(cfg UnitPhaseConfig, locator *Locator, runner proc.Runner, job ci.JobContext, fileLogger *logging.FileLogger) *UnitPhase {
	return &UnitPhase{
		cfg:        cfg,
		locator:    locator,
		runner:     runner,
		job:        job,
		fileLogger: fileLogger,
	}
}

// Run executes the unit phase. A locator failure fails the phase, never the
// whole run; the orchestrator still proceeds to other selected phases.
func (p *UnitPhase) Run(ctx context.Context) types.PhaseResult {
	started := time.Now()
	fail := func(err error) types.PhaseResult {
		log.Error().Err(err).Msg("unit phase failed")
		metrics.RecordErrorDetails("unit phase", err)
		return types.PhaseResult{
			Phase:    types.PhaseUnit,
			Status:   types.PhaseStatusFail,
			Duration: time.Since(started),
			Err:      err,
		}
	}

	location, err := p.locator.Locate(ctx)
	if err != nil {
		return fail(err)
	}
	log.Info().
		Str("runner", location.Path).
		Str("source", string(location.Source)).
		Msg("resolved test runner")

	artifacts, err := DiscoverArtifacts(p.cfg.TestRoot, p.cfg.BuildConfiguration, p.cfg.ArtifactSuffix)
	if err != nil {
		return fail(err)
	}
	if len(artifacts) == 0 {
		log.Warn().
			Str("root", p.cfg.TestRoot).
			Str("configuration", p.cfg.BuildConfiguration).
			Msg("no unit test assemblies found")
	}

	args := make([]string, 0, len(artifacts)+3)
	if p.job.OnCI {
		args = append(args, appveyorLoggerArg)
	}
	for _, a := range artifacts {
		args = append(args, a.Path)
	}
	args = append(args, parallelArg, platformArgPrefix+p.cfg.Platform)

	log.Info().
		Int("artifacts", len(artifacts)).
		Str("configuration", p.cfg.BuildConfiguration).
		Str("platform", p.cfg.Platform).
		Msg("running unit tests")

	result, err := p.runner.Run(ctx, proc.Command{Name: location.Path, Args: args})
	if err != nil {
		return fail(err)
	}

	if p.fileLogger != nil {
		if err := p.fileLogger.SavePhaseOutput(types.PhaseUnit, result); err != nil {
			log.Warn().Err(err).Msg("failed to save unit phase output")
		}
	}

	status := types.PhaseStatusPass
	if !result.Success() {
		status = types.PhaseStatusFail
		log.Error().Int("exit_code", result.ExitCode).Msg("unit tests failed")
	}
	return types.PhaseResult{
		Phase:    types.PhaseUnit,
		Status:   status,
		ExitCode: result.ExitCode,
		Duration: time.Since(started),
	}
}
