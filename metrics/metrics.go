package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"github.com/devinfra/run-tests/types"
)

const (
	MetricsNamespace = "runtests"

	// pushJobName is the Pushgateway job label for this tool.
	pushJobName = "run_tests"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	phaseResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_results",
		Help:      "Result of each test phase",
	}, []string{
		"run_id",
		"phase",
		"result",
	})

	phaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of each test phase",
	}, []string{
		"run_id",
		"phase",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Total number of orchestrated test runs",
	}, []string{
		"result",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug().
			Str("m", "errors_total").
			Str("error", error).
			Msg("metric inc")
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordPhase records the outcome and duration of a single phase.
func RecordPhase(runID string, result types.PhaseResult) {
	if Debug {
		log.Debug().
			Str("m", "phase_results").
			Str("run_id", runID).
			Str("phase", string(result.Phase)).
			Str("result", string(result.Status)).
			Msg("metric set")
	}
	phaseResults.WithLabelValues(runID, string(result.Phase), string(result.Status)).Set(1)
	phaseDuration.WithLabelValues(runID, string(result.Phase)).Set(result.Duration.Seconds())
}

// RecordRun records the aggregated outcome of a full run.
func RecordRun(failed bool) {
	result := "pass"
	if failed {
		result = "fail"
	}
	runsTotal.WithLabelValues(result).Inc()
}

// Push sends all registered metrics to a Prometheus Pushgateway. run-tests
// is a run-once process, so pushing replaces a scrape endpoint.
func Push(gateway string) error {
	return push.New(gateway, pushJobName).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
