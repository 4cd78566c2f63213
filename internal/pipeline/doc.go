// Package pipeline runs a video through tacreview end to end.
//
// A run validates the input against the configured limits, plans sample
// positions, extracts frames with ffmpeg, and analyzes them with the vision
// service on a bounded errgroup pool (analysis.concurrency workers). Each
// analyzed frame is annotated and rendered, then all analyses are aggregated
// after a full barrier into the summary document and text report.
//
// Failure policy: a frame whose analysis fails after the client's retries is
// logged, counted in metrics, recorded as skipped, and left out of the
// summary. The run fails only when no frame was analyzed (services.ErrEmptyInput)
// or on input, decode, or filesystem errors.
//
// Run history is written through RunStore when one is configured. History
// write failures are logged and never fail a run.
package pipeline
