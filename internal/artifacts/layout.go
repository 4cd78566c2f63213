package artifacts

import (
	"fmt"
	"path/filepath"
)

// Subdirectory and file names under a video's output directory.
const (
	FramesDir       = "frames"
	AnnotatedDir    = "annotated"
	AnalysisDir     = "analysis"
	MetadataFile    = "metadata.json"
	SummaryFile     = "summary.json"
	ReportFile      = "report.txt"
	InfographicBase = "infographic"
	lockFile        = ".tacreview.lock"
)

// Layout resolves artifact paths for one video:
//
//	<output>/<video>/frames/frame_000_7.5s.jpg
//	<output>/<video>/annotated/annotated_000_7.5s.jpg
//	<output>/<video>/analysis/analysis_000_7.5s.json
//	<output>/<video>/{metadata.json,summary.json,report.txt}
type Layout struct {
	Root string
}

// NewLayout returns the layout for videoName under outputDir.
func NewLayout(outputDir, videoName string) Layout {
	return Layout{Root: filepath.Join(outputDir, videoName)}
}

func stem(prefix string, index int, timestamp float64) string {
	return fmt.Sprintf("%s_%03d_%.1fs", prefix, index, timestamp)
}

// FramePath is the path of the raw extracted frame.
func (l Layout) FramePath(index int, timestamp float64) string {
	return filepath.Join(l.Root, FramesDir, stem("frame", index, timestamp)+".jpg")
}

// AnnotatedPath is the path of the overlay-rendered frame.
func (l Layout) AnnotatedPath(index int, timestamp float64) string {
	return filepath.Join(l.Root, AnnotatedDir, stem("annotated", index, timestamp)+".jpg")
}

// AnalysisPath is the path of a frame's analysis record.
func (l Layout) AnalysisPath(index int, timestamp float64) string {
	return filepath.Join(l.Root, AnalysisDir, stem("analysis", index, timestamp)+".json")
}

func (l Layout) MetadataPath() string { return filepath.Join(l.Root, MetadataFile) }
func (l Layout) SummaryPath() string  { return filepath.Join(l.Root, SummaryFile) }
func (l Layout) ReportPath() string   { return filepath.Join(l.Root, ReportFile) }
func (l Layout) LockPath() string     { return filepath.Join(l.Root, lockFile) }

// InfographicPath is the infographic path for the given extension (".png").
func (l Layout) InfographicPath(ext string) string {
	return filepath.Join(l.Root, InfographicBase+ext)
}
