package runtests

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/devinfra/run-tests/ci"
	"github.com/devinfra/run-tests/flags"
	"github.com/devinfra/run-tests/types"
)

// Config holds the resolved run configuration. It is immutable once
// resolved at startup; phases receive copies of the values they need.
type Config struct {
	BuildConfiguration string        // Build configuration whose artifacts are tested
	Platform           string        // Target platform passed to the runner
	Phases             []types.Phase // Selected phases, in execution order
	Verbose            bool          // Verbosity passthrough to the orchestration tool
	TestDir            string        // Root directory scanned for unit test assemblies
	LogDir             string        // Directory for captured subprocess output
	RunnerName         string        // Unit test runner binary name
	ArtifactSuffix     string        // Unit test assembly naming convention
	Descriptor         string        // Compose descriptor for local runs
	CIDescriptor       string        // Compose descriptor under CI
	Service            string        // Compose service running the test suite
	ResultsDir         string        // Host directory the results volume is mounted from
	UploadPolicy       ci.UploadPolicy
	MetricsGateway     string // Pushgateway URL, empty disables pushing
}

// NewConfig resolves the run configuration from CLI context, environment
// fallbacks (handled by the flag definitions) and the optional project
// file. Any error here is fatal before a phase runs.
func NewConfig(ctx *cli.Context) (*Config, error) {
	pf, err := loadProjectFile(ctx.String(flags.ProjectConfig.Name))
	if err != nil {
		return nil, err
	}

	configuration := ctx.String(flags.Configuration.Name)
	if configuration == "" {
		return nil, errors.New("build configuration cannot be empty")
	}
	platform := ctx.String(flags.Platform.Name)
	if platform == "" {
		return nil, errors.New("platform cannot be empty")
	}

	phases, err := resolvePhases(ctx.StringSlice(flags.TestType.Name))
	if err != nil {
		return nil, err
	}

	policyStr := ctx.String(flags.UploadPolicy.Name)
	if policyStr == "" {
		policyStr = pf.Upload.FailurePolicy
	}
	policy, err := ci.ParseUploadPolicy(policyStr)
	if err != nil {
		return nil, err
	}

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	return &Config{
		BuildConfiguration: configuration,
		Platform:           platform,
		Phases:             phases,
		Verbose:            ctx.Bool(flags.Verbose.Name),
		TestDir:            ctx.String(flags.TestDir.Name),
		LogDir:             logDir,
		RunnerName:         pf.Runner,
		ArtifactSuffix:     pf.ArtifactSuffix,
		Descriptor:         pf.Compose.Descriptor,
		CIDescriptor:       pf.Compose.CIDescriptor,
		Service:            pf.Compose.Service,
		ResultsDir:         pf.Compose.ResultsDir,
		UploadPolicy:       policy,
		MetricsGateway:     ctx.String(flags.MetricsGateway.Name),
	}, nil
}

// resolvePhases parses the repeatable --type flag; no selection means both
// phases, in unit-then-integration order.
func resolvePhases(names []string) ([]types.Phase, error) {
	if len(names) == 0 {
		return []types.Phase{types.PhaseUnit, types.PhaseIntegration}, nil
	}

	selected := make(map[types.Phase]bool, len(names))
	for _, name := range names {
		phase, err := types.ParsePhase(name)
		if err != nil {
			return nil, err
		}
		selected[phase] = true
	}

	// Execution order is fixed regardless of flag order.
	var phases []types.Phase
	for _, p := range []types.Phase{types.PhaseUnit, types.PhaseIntegration} {
		if selected[p] {
			phases = append(phases, p)
		}
	}
	return phases, nil
}

// HasPhase reports whether the given phase was selected.
func (c *Config) HasPhase(phase types.Phase) bool {
	for _, p := range c.Phases {
		if p == phase {
			return true
		}
	}
	return false
}
