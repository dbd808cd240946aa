// Package runtests orchestrates the unit and integration test phases for a
// build configuration and platform, aggregating their outcomes into a
// single process exit status.
package runtests

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/devinfra/run-tests/ci"
	"github.com/devinfra/run-tests/compose"
	"github.com/devinfra/run-tests/logging"
	"github.com/devinfra/run-tests/metrics"
	"github.com/devinfra/run-tests/proc"
	"github.com/devinfra/run-tests/runner"
	"github.com/devinfra/run-tests/types"
)

// PhaseRunner executes one test phase and reports its outcome. Phases never
// abort the orchestrator; failures are converted to a failed result.
type PhaseRunner interface {
	Run(ctx context.Context) types.PhaseResult
}

// Orchestrator runs the selected phases sequentially and aggregates their
// outcomes. Phases are independent: a failure in one never skips another.
type Orchestrator struct {
	cfg        *Config
	runID      string
	phases     map[types.Phase]PhaseRunner
	fileLogger *logging.FileLogger
	tracer     trace.Tracer
	results    []types.PhaseResult
}

// New wires the orchestrator with real phase implementations.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	runID := uuid.New().String()
	fileLogger, err := logging.NewFileLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	procRunner := proc.NewRunner()
	job := ci.Detect()

	unit := runner.NewUnitPhase(runner.UnitPhaseConfig{
		BuildConfiguration: cfg.BuildConfiguration,
		Platform:           cfg.Platform,
		TestRoot:           cfg.TestDir,
		ArtifactSuffix:     cfg.ArtifactSuffix,
	}, runner.NewLocator(procRunner).WithRunnerName(cfg.RunnerName), procRunner, job, fileLogger)

	integration := compose.NewIntegrationPhase(compose.IntegrationPhaseConfig{
		BuildConfiguration: cfg.BuildConfiguration,
		Platform:           cfg.Platform,
		Verbose:            cfg.Verbose,
		Descriptor:         cfg.Descriptor,
		CIDescriptor:       cfg.CIDescriptor,
		Service:            cfg.Service,
		ResultsDir:         cfg.ResultsDir,
		UploadPolicy:       cfg.UploadPolicy,
	}, procRunner, job, ci.NewUploader(), fileLogger)

	return newWithPhases(cfg, runID, fileLogger, map[types.Phase]PhaseRunner{
		types.PhaseUnit:        unit,
		types.PhaseIntegration: integration,
	}), nil
}

// newWithPhases exists so tests can inject scripted phases.
func newWithPhases(cfg *Config, runID string, fileLogger *logging.FileLogger, phases map[types.Phase]PhaseRunner) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		runID:      runID,
		phases:     phases,
		fileLogger: fileLogger,
		tracer:     otel.Tracer("run-tests"),
	}
}

// RunID returns the identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes every selected phase and returns nil on success or a
// TestFailureError when any selected, non-skipped phase failed. Both phases
// always run when both are selected; there is no short-circuiting.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()
	log.Info().
		Str("run_id", o.runID).
		Str("configuration", o.cfg.BuildConfiguration).
		Str("platform", o.cfg.Platform).
		Msg("starting test run")

	failed := false
	for _, phase := range o.cfg.Phases {
		p, ok := o.phases[phase]
		if !ok {
			return NewRuntimeError(fmt.Errorf("no runner wired for phase %s", phase))
		}

		phaseCtx, span := o.tracer.Start(ctx, fmt.Sprintf("%s phase", phase))
		result := p.Run(phaseCtx)
		span.End()

		o.results = append(o.results, result)
		metrics.RecordPhase(o.runID, result)
		if result.Failed() {
			failed = true
		}
	}

	o.printResultsTable(time.Since(started))
	metrics.RecordRun(failed)
	o.pushMetrics()

	if failed {
		return NewTestFailureError(o.failureSummary())
	}
	log.Info().Str("run_id", o.runID).Msg("test run completed")
	return nil
}

// Results returns the phase outcomes collected so far.
func (o *Orchestrator) Results() []types.PhaseResult {
	return o.results
}

func (o *Orchestrator) failureSummary() string {
	for _, r := range o.results {
		if r.Failed() {
			return r.String()
		}
	}
	return "one or more test phases failed"
}

func (o *Orchestrator) pushMetrics() {
	if o.cfg.MetricsGateway == "" {
		return
	}
	if err := metrics.Push(o.cfg.MetricsGateway); err != nil {
		log.Warn().Err(err).Str("gateway", o.cfg.MetricsGateway).Msg("failed to push metrics")
	}
}

// printResultsTable prints the phase outcomes to the console.
func (o *Orchestrator) printResultsTable(total time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(total)))

	t.AppendHeader(table.Row{"Phase", "Duration", "Exit Code", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit Code", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range o.results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		t.AppendRow(table.Row{
			string(r.Phase),
			formatDuration(r.Duration),
			r.ExitCode,
			getResultString(r.Status),
			errMsg,
		})
	}
	t.Render()
}
