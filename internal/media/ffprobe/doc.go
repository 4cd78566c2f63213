// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: video stream properties (dimensions, frame rates, frame count)
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect executes ffprobe and returns a parsed Result. Helper methods resolve
// the primary video stream, rational frame rates, and frame counts.
package ffprobe
