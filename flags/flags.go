package flags

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "RUN_TESTS"

// prefixEnvVars adds the application prefix to an environment variable name.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	// Configuration and Platform intentionally use the bare CONFIGURATION /
	// PLATFORM variables: those are the solution-wide build variables every
	// other build step already consumes.
	Configuration = &cli.StringFlag{
		Name:    "configuration",
		Value:   "Debug",
		EnvVars: []string{"CONFIGURATION"},
		Usage:   "Build configuration whose test artifacts are run (eg. 'Debug', 'Release')",
	}
	Platform = &cli.StringFlag{
		Name:    "platform",
		Value:   "x86",
		EnvVars: []string{"PLATFORM"},
		Usage:   "Target platform passed to the test runner (eg. 'x86', 'x64')",
	}
	TestType = &cli.StringSliceFlag{
		Name:    "type",
		EnvVars: prefixEnvVars("TYPE"),
		Usage:   "Test phase to run ('Unit' or 'Integration'). May be repeated; defaults to both.",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: prefixEnvVars("VERBOSE"),
		Usage:   "Pass a verbosity flag to the container orchestration tool",
	}
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "test",
		EnvVars: prefixEnvVars("TESTDIR"),
		Usage:   "Root directory scanned for unit test assemblies",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store captured test runner output",
	}
	ProjectConfig = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to an optional project file overriding runner and compose settings (default 'runtests.yaml' when present)",
	}
	UploadPolicy = &cli.StringFlag{
		Name:    "upload-policy",
		Value:   "",
		EnvVars: prefixEnvVars("UPLOAD_POLICY"),
		Usage:   "How a failed result upload affects the run: 'warn' (default) or 'fail'",
	}
	MetricsGateway = &cli.StringFlag{
		Name:    "metrics-gateway",
		Value:   "",
		EnvVars: prefixEnvVars("METRICS_GATEWAY"),
		Usage:   "Prometheus Pushgateway URL to push run metrics to (disabled when empty)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
)

var Flags = []cli.Flag{
	Configuration,
	Platform,
	TestType,
	Verbose,
	TestDir,
	LogDir,
	ProjectConfig,
	UploadPolicy,
	MetricsGateway,
	LogLevel,
}
