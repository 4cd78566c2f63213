// Package vision turns encoded frames into tactical analyses and overlay
// layouts using a vision-language model.
//
// Analyzer sends each frame with AnalysisPrompt and decodes the reply into an
// analysis.FrameAnalysis, tolerating floats and numeric strings where
// integers are expected. Annotate sends a second request, briefed with a
// condensed tactical summary, for soldier positions, threat axes, and
// blindspots in percent coordinates.
//
// Every request passes through a gobreaker circuit breaker. After
// Options.FailureThreshold consecutive failures further requests fail fast
// with services.ErrBreakerOpen until the open timeout elapses. All failures
// are tagged services.ErrAnalysisService; callers skip the frame.
package vision
