package sampler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tacreview/internal/media/ffprobe"
	"tacreview/internal/services"
)

// VideoMetadata describes a source video. It is computed once per video and
// never mutated afterward.
type VideoMetadata struct {
	Path            string  `json:"path"`
	Name            string  `json:"name"`
	SizeBytes       int64   `json:"size_bytes"`
	FPS             float64 `json:"fps"`
	TotalFrames     int     `json:"total_frames"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationSeconds float64 `json:"duration"`
}

// NewVideoMetadata builds metadata with DurationSeconds derived from the
// frame count and rate.
func NewVideoMetadata(path string, fps float64, totalFrames, width, height int) VideoMetadata {
	meta := VideoMetadata{
		Path:        path,
		Name:        VideoName(path),
		FPS:         fps,
		TotalFrames: totalFrames,
		Width:       width,
		Height:      height,
	}
	if fps > 0 {
		meta.DurationSeconds = float64(totalFrames) / fps
	}
	return meta
}

// VideoName returns the file name without directory or extension.
func VideoName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SizeMB returns the file size in mebibytes.
func (m VideoMetadata) SizeMB() float64 {
	return float64(m.SizeBytes) / (1024 * 1024)
}

// Resolution returns [width, height].
func (m VideoMetadata) Resolution() [2]int {
	return [2]int{m.Width, m.Height}
}

// Prober reads video metadata from a source file.
type Prober interface {
	Probe(ctx context.Context, path string) (VideoMetadata, error)
}

// FFprobe probes videos with the ffprobe binary.
type FFprobe struct {
	Binary string
}

// Probe inspects path and converts the primary video stream into metadata.
func (p FFprobe) Probe(ctx context.Context, path string) (VideoMetadata, error) {
	result, err := ffprobe.Inspect(ctx, p.Binary, path)
	if err != nil {
		return VideoMetadata{}, services.Wrap(services.ErrDecode, "probe", "ffprobe", path, err)
	}
	return MetadataFromProbe(path, result)
}

// MetadataFromProbe converts an ffprobe result to VideoMetadata.
func MetadataFromProbe(path string, result ffprobe.Result) (VideoMetadata, error) {
	stream, ok := result.PrimaryVideo()
	if !ok {
		return VideoMetadata{}, services.Wrap(services.ErrDecode, "probe", "streams", path+": no video stream", nil)
	}
	fps := stream.FrameRate()
	if fps <= 0 || math.IsNaN(fps) {
		return VideoMetadata{}, services.Wrap(services.ErrDecode, "probe", "frame rate", path+": unreadable frame rate", nil)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return VideoMetadata{}, services.Wrap(services.ErrDecode, "probe", "dimensions", path+": missing dimensions", nil)
	}
	meta := NewVideoMetadata(path, fps, result.FrameCount(), stream.Width, stream.Height)
	meta.SizeBytes = result.SizeBytes()
	return meta, nil
}

// InputLimits are rejection thresholds enforced before extraction.
type InputLimits struct {
	SupportedFormats   []string
	MaxDurationSeconds float64
	MaxFileSizeBytes   int64
}

// ValidateInput checks path against limits and probes it. Failures carry
// services.ErrNotFound, services.ErrInputValidation, or services.ErrDecode.
func ValidateInput(ctx context.Context, prober Prober, path string, limits InputLimits) (VideoMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return VideoMetadata{}, services.Wrap(services.ErrNotFound, "validate", "stat", path, err)
		}
		return VideoMetadata{}, services.Wrap(services.ErrInputValidation, "validate", "stat", path, err)
	}
	if info.IsDir() {
		return VideoMetadata{}, services.Wrap(services.ErrInputValidation, "validate", "stat", path+" is a directory", nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(limits.SupportedFormats) > 0 && !slices.Contains(limits.SupportedFormats, ext) {
		msg := fmt.Sprintf("unsupported format %q (supported: %s)", ext, strings.Join(limits.SupportedFormats, ", "))
		return VideoMetadata{}, services.Wrap(services.ErrInputValidation, "validate", "format", msg, nil)
	}

	if limits.MaxFileSizeBytes > 0 && info.Size() > limits.MaxFileSizeBytes {
		msg := fmt.Sprintf("file too large: %.1f MB (max %.0f MB)", float64(info.Size())/(1024*1024), float64(limits.MaxFileSizeBytes)/(1024*1024))
		return VideoMetadata{}, services.Wrap(services.ErrInputValidation, "validate", "size", msg, nil)
	}

	meta, err := prober.Probe(ctx, path)
	if err != nil {
		return VideoMetadata{}, err
	}
	meta.Path = path
	meta.Name = VideoName(path)
	meta.SizeBytes = info.Size()

	if limits.MaxDurationSeconds > 0 && meta.DurationSeconds > limits.MaxDurationSeconds {
		msg := fmt.Sprintf("video too long: %.1fs (max %.0fs)", meta.DurationSeconds, limits.MaxDurationSeconds)
		return VideoMetadata{}, services.Wrap(services.ErrInputValidation, "validate", "duration", msg, nil)
	}
	return meta, nil
}

// ValidationReport summarizes a validated video for display.
type ValidationReport struct {
	Valid      bool    `json:"valid"`
	Filename   string  `json:"filename"`
	SizeMB     float64 `json:"size_mb"`
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	Resolution [2]int  `json:"resolution"`
	FrameCount int     `json:"frame_count"`
	Error      string  `json:"error,omitempty"`
}

// Report builds a ValidationReport from a ValidateInput result.
func Report(path string, meta VideoMetadata, err error) ValidationReport {
	report := ValidationReport{Filename: filepath.Base(path)}
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Valid = true
	report.SizeMB = math.Round(meta.SizeMB()*100) / 100
	report.Duration = meta.DurationSeconds
	report.FPS = meta.FPS
	report.Resolution = meta.Resolution()
	report.FrameCount = meta.TotalFrames
	return report
}
