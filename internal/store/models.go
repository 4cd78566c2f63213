package store

import (
	"time"

	"tacreview/internal/services"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = Status(services.StatusFailed)
	StatusReview    Status = Status(services.StatusReview)
)

// InterruptedReason is the error message set on runs left running by a
// process that exited early.
const InterruptedReason = "interrupted before completion"

// Outcome is the result of one frame within a run.
type Outcome string

const (
	OutcomeAnalyzed Outcome = "analyzed"
	OutcomeSkipped  Outcome = "skipped"
)

// Run is one pipeline invocation for a single video.
type Run struct {
	ID             string
	VideoName      string
	VideoPath      string
	OutputDir      string
	Model          string
	Status         Status
	FramesPlanned  int
	FramesAnalyzed int
	FramesSkipped  int
	// AverageScore, Rating and BenchmarkPassed are set once the run completes.
	AverageScore    *float64
	Rating          string
	BenchmarkPassed *bool
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Duration returns the wall time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finished reports whether the run reached a terminal state.
func (r Run) Finished() bool {
	return r.Status != StatusRunning
}

// FrameResult records how one sampled frame fared.
type FrameResult struct {
	FrameIndex       int
	SourceFrame      int
	TimestampSeconds float64
	Outcome          Outcome
	Score            *int
	Formation        string
	ErrorMessage     string
}

// Stats counts runs by status.
type Stats map[Status]int

// Total returns the number of runs across all statuses.
func (s Stats) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}
