// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, video names, and frame
//     indices for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed vs review) and tell the pipeline
//     which failures are recovered locally and which abort the run.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
