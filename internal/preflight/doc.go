// Package preflight provides readiness checks for the binaries, directories,
// and vision API that tacreview depends on.
//
// These checks run in two contexts:
//   - The analyze command calls RunLocal before sampling a video. If any check
//     fails the run stops before any frames are extracted.
//   - The CLI "tacreview status" command calls RunAll, which adds a live
//     health request against the configured vision model.
package preflight
