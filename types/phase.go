package types

import (
	"fmt"
	"strings"
	"time"
)

// Phase identifies an independently-executed test category.
type Phase string

const (
	PhaseUnit        Phase = "Unit"
	PhaseIntegration Phase = "Integration"
)

// ParsePhase converts a user-supplied phase name into a Phase.
// Matching is case-insensitive.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unit":
		return PhaseUnit, nil
	case "integration":
		return PhaseIntegration, nil
	default:
		return "", fmt.Errorf("unknown test type %q (expected %s or %s)", s, PhaseUnit, PhaseIntegration)
	}
}

// PhaseStatus represents the outcome of a phase
type PhaseStatus string

const (
	PhaseStatusPass PhaseStatus = "pass"
	PhaseStatusFail PhaseStatus = "fail"
	// PhaseStatusSkip means the phase was not applicable to this
	// environment. Skipped phases count as success for aggregation.
	PhaseStatusSkip PhaseStatus = "skip"
)

// PhaseResult captures the outcome of a single phase run
type PhaseResult struct {
	Phase    Phase
	Status   PhaseStatus
	ExitCode int
	Duration time.Duration
	Err      error
}

// Failed reports whether the phase counts as a failure for aggregation.
func (r PhaseResult) Failed() bool {
	return r.Status == PhaseStatusFail
}

func (r PhaseResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.Phase, r.Status, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Phase, r.Status)
}
