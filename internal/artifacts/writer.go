package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"tacreview/internal/analysis"
	"tacreview/internal/fileutil"
	"tacreview/internal/logging"
	"tacreview/internal/overlay"
	"tacreview/internal/report"
	"tacreview/internal/sampler"
	"tacreview/internal/services"
)

// ErrLocked is returned by Open when another run holds the video's lock.
var ErrLocked = errors.New("artifact directory locked by another run")

// Metadata is the run record written next to the summary.
type Metadata struct {
	RunID     string                `json:"run_id"`
	CreatedAt time.Time             `json:"created_at"`
	Model     string                `json:"model"`
	Video     sampler.VideoMetadata `json:"video"`
	Plan      sampler.SamplePlan    `json:"plan"`
	Skipped   []int                 `json:"skipped_frames,omitempty"`
}

// Writer persists the artifacts of one run.
type Writer interface {
	WriteFrame(frame sampler.ExtractedFrame) (string, error)
	WriteAnnotated(index int, timestamp float64, img image.Image) (string, error)
	WriteAnalysis(result analysis.FrameAnalysis) (string, error)
	WriteMetadata(meta Metadata) (string, error)
	WriteSummary(doc report.Document) (string, error)
	WriteReport(text string) (string, error)
	WriteInfographic(info overlay.Infographic) (string, error)
}

// Dir is a Writer rooted at a Layout and guarded by a file lock.
type Dir struct {
	layout  Layout
	quality int
	lock    *flock.Flock
	logger  *slog.Logger
}

// Open creates the video's output directories and takes its lock. The lock is
// released by Close.
func Open(layout Layout, quality int, logger *slog.Logger) (*Dir, error) {
	for _, sub := range []string{FramesDir, AnnotatedDir, AnalysisDir} {
		if err := os.MkdirAll(filepath.Join(layout.Root, sub), 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "artifacts", "create directory", layout.Root, err)
		}
	}
	lock := flock.New(layout.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "artifacts", "acquire lock", layout.LockPath(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "artifacts", "acquire lock", layout.Root, ErrLocked)
	}
	return &Dir{
		layout:  layout,
		quality: quality,
		lock:    lock,
		logger:  logging.NewComponentLogger(logger, "artifacts"),
	}, nil
}

// Layout returns the directory layout.
func (d *Dir) Layout() Layout {
	return d.layout
}

// Reset clears what an earlier run left behind: the per-frame directories
// and the run metadata. Call it only while holding the lock.
func (d *Dir) Reset() error {
	for _, sub := range []string{FramesDir, AnnotatedDir, AnalysisDir} {
		path := filepath.Join(d.layout.Root, sub)
		if err := os.RemoveAll(path); err != nil {
			return services.Wrap(services.ErrTransient, "artifacts", "clear directory", path, err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "artifacts", "create directory", path, err)
		}
	}
	if err := os.Remove(d.layout.MetadataPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrTransient, "artifacts", "remove metadata", d.layout.MetadataPath(), err)
	}
	d.logger.Debug("cleared previous run artifacts", logging.String("path", d.layout.Root))
	return nil
}

// Close releases the lock.
func (d *Dir) Close() error {
	if d == nil || d.lock == nil {
		return nil
	}
	return d.lock.Unlock()
}

// EncodeJPEG encodes img at quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Dir) writeJPEG(path string, img image.Image) (string, error) {
	err := fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: d.quality})
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "artifacts", "write image", path, err)
	}
	d.logger.Debug("wrote image", logging.String("path", path))
	return path, nil
}

func (d *Dir) writeJSON(path string, value any) (string, error) {
	if err := fileutil.WriteJSON(path, value); err != nil {
		return "", services.Wrap(services.ErrTransient, "artifacts", "write json", path, err)
	}
	d.logger.Debug("wrote json", logging.String("path", path))
	return path, nil
}

func (d *Dir) WriteFrame(frame sampler.ExtractedFrame) (string, error) {
	return d.writeJPEG(d.layout.FramePath(frame.Index, frame.TimestampSeconds), frame.Image)
}

func (d *Dir) WriteAnnotated(index int, timestamp float64, img image.Image) (string, error) {
	return d.writeJPEG(d.layout.AnnotatedPath(index, timestamp), img)
}

func (d *Dir) WriteAnalysis(result analysis.FrameAnalysis) (string, error) {
	return d.writeJSON(d.layout.AnalysisPath(result.FrameIndex, result.TimestampSeconds), result)
}

func (d *Dir) WriteMetadata(meta Metadata) (string, error) {
	return d.writeJSON(d.layout.MetadataPath(), meta)
}

func (d *Dir) WriteSummary(doc report.Document) (string, error) {
	return d.writeJSON(d.layout.SummaryPath(), doc)
}

func (d *Dir) WriteReport(text string) (string, error) {
	path := d.layout.ReportPath()
	if err := fileutil.WriteAtomic(path, []byte(text), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "artifacts", "write report", path, err)
	}
	return path, nil
}

func (d *Dir) WriteInfographic(info overlay.Infographic) (string, error) {
	path := d.layout.InfographicPath(info.Extension())
	if err := fileutil.WriteAtomic(path, info.Data, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "artifacts", "write infographic", path, err)
	}
	return path, nil
}
