package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/devinfra/run-tests/proc"
	"github.com/devinfra/run-tests/types"
)

// RunDirectoryPrefix is the standardized prefix for per-run log directories.
const RunDirectoryPrefix = "testrun-"

// FileLogger persists captured subprocess output under a per-run directory,
// one file per phase. Output is stripped of ANSI escapes so the files are
// readable in CI artifact viewers.
type FileLogger struct {
	baseDir string
	runDir  string
	runID   string
	mu      sync.Mutex
}

// NewFileLogger creates the per-run directory beneath baseDir.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", runDir, err)
	}
	return &FileLogger{baseDir: baseDir, runDir: runDir, runID: runID}, nil
}

// Dir returns the per-run log directory.
func (l *FileLogger) Dir() string {
	return l.runDir
}

// RunID returns the run identifier this logger was created for.
func (l *FileLogger) RunID() string {
	return l.runID
}

// SavePhaseOutput writes the captured stdout/stderr of a phase's subprocess
// to <runDir>/<phase>.log. Failures here must never fail the phase; callers
// log the returned error as a warning.
func (l *FileLogger) SavePhaseOutput(phase types.Phase, result proc.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d\nduration: %s\n", result.ExitCode, result.Duration)
	if result.Stdout != "" {
		b.WriteString("\n--- stdout ---\n")
		b.WriteString(stripansi.Strip(result.Stdout))
		if !strings.HasSuffix(result.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if result.Stderr != "" {
		b.WriteString("\n--- stderr ---\n")
		b.WriteString(stripansi.Strip(result.Stderr))
		if !strings.HasSuffix(result.Stderr, "\n") {
			b.WriteString("\n")
		}
	}

	path := filepath.Join(l.runDir, strings.ToLower(string(phase))+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write phase log %s: %w", path, err)
	}
	return nil
}
