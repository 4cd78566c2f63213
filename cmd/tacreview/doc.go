// Package main hosts the tacreview CLI.
//
// The Cobra command tree resolves configuration once per invocation, then
// hands off to internal packages: analyze and summarize drive the pipeline,
// validate and probe inspect a video without calling the vision model,
// history and show read the sqlite run history, and status runs the preflight
// checks.
//
// Frame analysis failures are not fatal. A frame whose vision request fails
// after retries is logged and left out of the summary; analyze exits non-zero
// only when no frame could be analyzed or the input is rejected.
package main
