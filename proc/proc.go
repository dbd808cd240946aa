// Package proc wraps subprocess invocation behind a small interface so that
// phase logic can be exercised in tests without spawning real processes.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Command describes a single subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Result is the explicit outcome of a completed subprocess. A non-zero exit
// status is represented here as data, never as a Go error: errors are
// reserved for "the process could not be started at all".
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the subprocess exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes subprocesses and resolves binaries on the search path.
type Runner interface {
	// Run blocks until the command completes and returns its captured result.
	Run(ctx context.Context, cmd Command) (Result, error)
	// LookPath reports whether name resolves on the executable search path.
	LookPath(name string) (string, bool)
}

// NewRunner returns a Runner backed by os/exec. Commands inherit the
// process environment, which is how scoped env overrides reach subprocesses.
func NewRunner() Runner {
	return &execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, c Command) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context cannot be nil")
	}
	if c.Name == "" {
		return Result{}, errors.New("command name cannot be empty")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", c.Name, runErr)
	}
	return result, nil
}

func (execRunner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
