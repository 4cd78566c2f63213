package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")

	// ErrInputValidation rejects a video before any processing starts (bad path,
	// unsupported format, oversize file or duration). Callers may retry with a
	// different file.
	ErrInputValidation = errors.New("input validation error")
	// ErrNotFound reports a missing video source.
	ErrNotFound = errors.New("not found")
	// ErrDecode reports an unreadable or corrupt video stream.
	ErrDecode = errors.New("decode error")
	// ErrFrameRead reports a single unreadable sample position.
	ErrFrameRead = errors.New("frame read error")
	// ErrNoFramesExtracted is raised when every sample position failed.
	ErrNoFramesExtracted = errors.New("no frames extracted")
	// ErrAnalysisService reports a vision-service failure for one frame.
	ErrAnalysisService = errors.New("analysis service error")
	// ErrBreakerOpen marks requests refused while the vision circuit breaker
	// is open. It always accompanies ErrAnalysisService.
	ErrBreakerOpen = errors.New("circuit breaker open")
	// ErrEmptyInput is returned when aggregation receives zero analyses.
	ErrEmptyInput = errors.New("empty input")
)

// Status classifies how a failed run should be presented to the operator.
type Status string

const (
	// StatusFailed marks runs that may succeed when retried unchanged.
	StatusFailed Status = "failed"
	// StatusReview marks runs that need a different input or configuration.
	StatusReview Status = "review"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the run status persisted after failure.
func FailureStatus(err error) Status {
	switch {
	case errors.Is(err, ErrInputValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return StatusReview
	default:
		return StatusFailed
	}
}

// IsFatal reports whether err must abort the whole run. Frame read and
// per-frame analysis failures are recovered locally by the pipeline.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoFramesExtracted) || errors.Is(err, ErrEmptyInput) {
		return true
	}
	return !errors.Is(err, ErrFrameRead) && !errors.Is(err, ErrAnalysisService)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
