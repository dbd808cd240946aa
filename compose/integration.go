// Package compose runs the containerized integration test phase through
// docker-compose.
package compose

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devinfra/run-tests/ci"
	"github.com/devinfra/run-tests/env"
	"github.com/devinfra/run-tests/logging"
	"github.com/devinfra/run-tests/metrics"
	"github.com/devinfra/run-tests/proc"
	"github.com/devinfra/run-tests/types"
)

const (
	// ComposeBinary is the container orchestration command. When it is not
	// on the path the integration phase is skipped, not failed.
	ComposeBinary = "docker-compose"

	// DefaultService is the compose service that runs the test suite.
	DefaultService = "tests"

	// ContainerResultsDir is where the in-container test command writes its
	// result file; the compose descriptor mounts the host results directory
	// there.
	ContainerResultsDir = "/results"

	// DefaultResultsDir is the host-side directory mounted at
	// ContainerResultsDir.
	DefaultResultsDir = "TestResults"

	// ResultsFileName is the result artifact emitted by the in-container
	// test command. Its format is opaque to the orchestrator.
	ResultsFileName = "integration-tests.trx"

	// Scoped environment overrides carrying the resolved configuration into
	// the compose subprocess.
	envConfiguration = "CONFIGURATION"
	envPlatform      = "PLATFORM"
)

// ResultUploader posts a result file to the CI results endpoint.
type ResultUploader interface {
	UploadResults(ctx context.Context, jobID, path string) error
}

// IntegrationPhaseConfig carries everything the integration phase needs
// from the resolved run configuration.
type IntegrationPhaseConfig struct {
	BuildConfiguration string
	Platform           string
	Verbose            bool
	Descriptor         string
	CIDescriptor       string
	Service            string
	ResultsDir         string
	UploadPolicy       ci.UploadPolicy
}

// IntegrationPhase resolves the compose descriptor, scopes configuration and
// platform into the environment, runs the test service and best-effort
// uploads the emitted result file.
type IntegrationPhase struct {
	cfg        IntegrationPhaseConfig
	runner     proc.Runner
	job        ci.JobContext
	uploader   ResultUploader
	fileLogger *logging.FileLogger
}

// NewIntegrationPhase wires the integration phase. fileLogger may be nil.
func NewIntegrationPhase(cfg IntegrationPhaseConfig, runner proc.Runner, job ci.JobContext, uploader ResultUploader, fileLogger *logging.FileLogger) *IntegrationPhase {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}
	if cfg.UploadPolicy == "" {
		cfg.UploadPolicy = ci.UploadPolicyWarn
	}
	return &IntegrationPhase{
		cfg:        cfg,
		runner:     runner,
		job:        job,
		uploader:   uploader,
		fileLogger: fileLogger,
	}
}

// Run executes the integration phase. The environment is restored before
// returning on every outcome.
func (p *IntegrationPhase) Run(ctx context.Context) types.PhaseResult {
	started := time.Now()

	if _, ok := p.runner.LookPath(ComposeBinary); !ok {
		log.Warn().Str("binary", ComposeBinary).Msg("container orchestration tool not available, skipping integration tests")
		return types.PhaseResult{
			Phase:    types.PhaseIntegration,
			Status:   types.PhaseStatusSkip,
			Duration: time.Since(started),
		}
	}

	fail := func(err error) types.PhaseResult {
		log.Error().Err(err).Msg("integration phase failed")
		metrics.RecordErrorDetails("integration phase", err)
		return types.PhaseResult{
			Phase:    types.PhaseIntegration,
			Status:   types.PhaseStatusFail,
			Duration: time.Since(started),
			Err:      err,
		}
	}

	descriptor, err := ResolveDescriptor(p.job.OnCI, p.cfg.Descriptor, p.cfg.CIDescriptor)
	if err != nil {
		return fail(err)
	}
	log.Info().
		Str("descriptor", descriptor).
		Str("service", p.cfg.Service).
		Str("configuration", p.cfg.BuildConfiguration).
		Str("platform", p.cfg.Platform).
		Msg("running integration tests")

	args := p.composeArgs(descriptor)

	var result proc.Result
	overrides := map[string]string{
		envConfiguration: p.cfg.BuildConfiguration,
		envPlatform:      p.cfg.Platform,
	}
	runErr := env.WithScopedEnv(overrides, func() error {
		var err error
		result, err = p.runner.Run(ctx, proc.Command{Name: ComposeBinary, Args: args})
		return err
	})
	if runErr != nil {
		return fail(runErr)
	}

	if p.fileLogger != nil {
		if err := p.fileLogger.SavePhaseOutput(types.PhaseIntegration, result); err != nil {
			log.Warn().Err(err).Msg("failed to save integration phase output")
		}
	}

	status := types.PhaseStatusPass
	if !result.Success() {
		status = types.PhaseStatusFail
		log.Error().Int("exit_code", result.ExitCode).Msg("integration tests failed")
	}
	outcome := types.PhaseResult{
		Phase:    types.PhaseIntegration,
		Status:   status,
		ExitCode: result.ExitCode,
		Duration: time.Since(started),
	}

	if uploadErr := p.uploadResults(ctx); uploadErr != nil {
		metrics.RecordErrorDetails("result upload", uploadErr)
		if p.cfg.UploadPolicy == ci.UploadPolicyFail {
			log.Error().Err(uploadErr).Msg("result upload failed")
			if outcome.Status == types.PhaseStatusPass {
				outcome.Status = types.PhaseStatusFail
				outcome.Err = uploadErr
			}
		} else {
			log.Warn().Err(uploadErr).Msg("result upload failed (best-effort, run outcome unaffected)")
		}
	}
	outcome.Duration = time.Since(started)
	return outcome
}

func (p *IntegrationPhase) composeArgs(descriptor string) []string {
	args := []string{"-f", descriptor}
	if p.cfg.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args, "run")
	if p.job.OnCI {
		// CI has no TTY to allocate.
		args = append(args, "-T")
	}
	args = append(args, "--rm", p.cfg.Service)
	args = append(args, containerCommand()...)
	return args
}

// containerCommand is the test invocation executed inside the container. It
// writes the result file into the mounted results volume.
func containerCommand() []string {
	return []string{
		"dotnet", "test",
		"--logger", "trx;LogFileName=" + ResultsFileName,
		"--results-directory", ContainerResultsDir,
	}
}

// uploadResults posts the emitted result file to the CI endpoint when a job
// identifier is present. Whether a failure here affects the phase outcome is
// decided by the upload policy.
func (p *IntegrationPhase) uploadResults(ctx context.Context) error {
	if p.job.JobID == "" || p.uploader == nil {
		return nil
	}
	hostPath, err := filepath.Abs(filepath.Join(p.cfg.ResultsDir, ResultsFileName))
	if err != nil {
		return err
	}
	log.Info().Str("path", hostPath).Str("job_id", p.job.JobID).Msg("uploading test results")
	return p.uploader.UploadResults(ctx, p.job.JobID, hostPath)
}
