package runtests

import (
	"time"

	"github.com/devinfra/run-tests/types"
)

// getResultString returns a marked string representing the phase result
func getResultString(status types.PhaseStatus) string {
	switch status {
	case types.PhaseStatusPass:
		return "✓ pass"
	case types.PhaseStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
