// Package sampler selects and extracts representative frames from a video.
//
// Plan maps fractional timeline positions onto frame indices, Resize
// normalizes frame dimensions, and Extractor reads the planned frames through
// a Decoder (FFmpegDecoder in production). ValidateInput enforces format,
// size, and duration limits before any extraction starts.
package sampler
