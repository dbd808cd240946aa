package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devinfra/run-tests/proc"
)

const (
	// DefaultRunnerBinary is the VSTest console runner invoked for the unit
	// phase.
	DefaultRunnerBinary = "vstest.console.exe"

	// locatorBinary is the Visual Studio locator tool, restored into the
	// package directory by the solution's package restore.
	locatorBinary = "vswhere.exe"

	// testToolsComponent is the installed component the locator is queried
	// for; installations without the test tools cannot provide the runner.
	testToolsComponent = "Microsoft.VisualStudio.PackageGroup.TestTools.Core"
)

// defaultPackageRoots are the installation roots scanned for the locator
// tool, relative to the working directory.
var defaultPackageRoots = []string{"packages"}

// runnerSubPath is the expected location of the runner beneath a Visual
// Studio installation returned by the locator tool.
var runnerSubPath = filepath.Join("Common7", "IDE", "Extensions", "TestPlatform", DefaultRunnerBinary)

// ErrRunnerNotFound is returned when every discovery tier is exhausted.
// It is fatal to the unit phase but never to the whole run.
var ErrRunnerNotFound = errors.New("test runner not found")

// Source records which discovery tier produced a runner location.
type Source string

const (
	SourcePath    Source = "path"
	SourceLocator Source = "locator"
)

// Location is a resolved runner binary. Resolved once per unit-phase
// invocation and never persisted.
type Location struct {
	Path   string
	Source Source
}

// Locator resolves the runner binary through an ordered sequence of
// strategies, each attempted exactly once:
//
//  1. the runner is already on the executable search path
//  2. the locator tool is found beneath a package root and queried for the
//     newest installation carrying the test tools
//  3. the runner is probed at its expected sub-path beneath that installation
type Locator struct {
	runner       proc.Runner
	runnerName   string
	packageRoots []string
}

// NewLocator builds a Locator with the default runner name and package
// roots.
func NewLocator(r proc.Runner) *Locator {
	return &Locator{
		runner:       r,
		runnerName:   DefaultRunnerBinary,
		packageRoots: defaultPackageRoots,
	}
}

// WithRunnerName overrides the binary name searched for on the path.
func (l *Locator) WithRunnerName(name string) *Locator {
	if name != "" {
		l.runnerName = name
	}
	return l
}

// WithPackageRoots overrides the roots scanned for the locator tool.
func (l *Locator) WithPackageRoots(roots ...string) *Locator {
	if len(roots) > 0 {
		l.packageRoots = roots
	}
	return l
}

// Locate resolves the runner. Each tier is attempted once; there is no
// retry.
func (l *Locator) Locate(ctx context.Context) (Location, error) {
	if path, ok := l.runner.LookPath(l.runnerName); ok {
		log.Debug().Str("path", path).Msg("runner found on search path")
		return Location{Path: path, Source: SourcePath}, nil
	}

	tool, err := l.findLocatorTool()
	if err != nil {
		return Location{}, err
	}
	log.Debug().Str("tool", tool).Msg("querying locator tool for installation path")

	result, err := l.runner.Run(ctx, proc.Command{
		Name: tool,
		Args: []string{
			"-latest",
			"-products", "*",
			"-requires", testToolsComponent,
			"-property", "installationPath",
		},
	})
	if err != nil {
		return Location{}, fmt.Errorf("%w: locator tool failed: %v", ErrRunnerNotFound, err)
	}

	installPath := firstLine(result.Stdout)
	if !result.Success() || installPath == "" {
		return Location{}, fmt.Errorf("%w: no matching installation found", ErrRunnerNotFound)
	}

	runnerPath := filepath.Join(installPath, runnerSubPath)
	if _, err := os.Stat(runnerPath); err != nil {
		return Location{}, fmt.Errorf("%w: runner binary not found at expected location %s", ErrRunnerNotFound, runnerPath)
	}
	return Location{Path: runnerPath, Source: SourceLocator}, nil
}

// findLocatorTool scans the package roots for the locator tool and picks
// the first match in lexical order.
func (l *Locator) findLocatorTool() (string, error) {
	for _, root := range l.packageRoots {
		// e.g. packages/vswhere.2.8.4/tools/vswhere.exe
		matches, err := filepath.Glob(filepath.Join(root, "vswhere*", "tools", locatorBinary))
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			// Glob output is sorted, so the first match is the lexically
			// smallest.
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("%w: locator tool missing - run a package restore first", ErrRunnerNotFound)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
