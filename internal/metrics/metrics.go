package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tacreview/internal/services"
)

const namespace = "tacreview"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full pipeline run",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	FramesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_extracted_total",
			Help:      "Frames decoded from source videos",
		},
	)

	FramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames dropped before aggregation, by stage",
		},
		[]string{"stage"},
	)

	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Vision requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Latency of vision requests",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		},
		[]string{"kind"},
	)

	FrameScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_score",
			Help:      "Distribution of per-frame tactical scores",
			Buckets:   []float64{50, 60, 70, 75, 80, 90, 100},
		},
	)

	AverageScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_average_score",
			Help:      "Average score of the most recent completed run",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAnalysis records one vision request.
func RecordAnalysis(kind string, duration time.Duration, err error) {
	AnalysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
	AnalysisRequests.WithLabelValues(kind, outcomeFor(err)).Inc()
}

// RecordFrameScore observes an accepted frame score.
func RecordFrameScore(score int) {
	FrameScore.Observe(float64(score))
}

// RecordSkippedFrame counts a frame dropped at stage.
func RecordSkippedFrame(stage string) {
	FramesSkipped.WithLabelValues(stage).Inc()
}

// RecordRun records a finished run. A nil error counts as completed.
func RecordRun(duration time.Duration, average float64, err error) {
	RunDuration.Observe(duration.Seconds())
	if err != nil {
		RunsTotal.WithLabelValues(string(services.FailureStatus(err))).Inc()
		return
	}
	RunsTotal.WithLabelValues("completed").Inc()
	AverageScore.Set(average)
}

// RecordBreakerTransition updates the breaker gauges for a state change.
// States follow gobreaker's ordering: closed, half-open, open.
func RecordBreakerTransition(name, from, to string, toValue float64) {
	BreakerState.WithLabelValues(name).Set(toValue)
	BreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// WriteTextfile writes the default registry in the node_exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, services.ErrBreakerOpen):
		return OutcomeRejected
	default:
		return OutcomeFailure
	}
}
