package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	runtests "github.com/devinfra/run-tests"
	"github.com/devinfra/run-tests/exitcodes"
	"github.com/devinfra/run-tests/flags"
	"github.com/devinfra/run-tests/logging"
)

var (
	Version   = "v1.2.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "run-tests"
	app.Usage = "Test orchestration for unit and containerized integration suites"
	app.Description = "run-tests locates and executes the unit and integration test phases for a build configuration and aggregates their outcomes into a single exit status"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeForError(err)))
		}
	}

	// Telemetry is best-effort; a missing collector must never break a test
	// run.
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to set up open telemetry")
	} else {
		defer shutdown()
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("run failed")
	}
}

// exitCodeForError maps typed runtime errors to exit code 2 and test
// failures (plus anything unclassified) to exit code 1.
func exitCodeForError(err error) int {
	if runtests.IsRuntimeError(err) {
		return exitcodes.RuntimeErr
	}
	return exitcodes.TestFailure
}

func run(ctx *cli.Context) error {
	if err := logging.Init(ctx.String(flags.LogLevel.Name), os.Stderr); err != nil {
		return runtests.NewRuntimeError(fmt.Errorf("failed to initialize logging: %w", err))
	}

	cfg, err := runtests.NewConfig(ctx)
	if err != nil {
		return runtests.NewRuntimeError(fmt.Errorf("failed to resolve configuration: %w", err))
	}
	log.Debug().
		Str("configuration", cfg.BuildConfiguration).
		Str("platform", cfg.Platform).
		Msg("resolved configuration")

	orchestrator, err := runtests.New(cfg)
	if err != nil {
		return runtests.NewRuntimeError(fmt.Errorf("failed to create orchestrator: %w", err))
	}

	return orchestrator.Run(ctx.Context)
}
