package artifacts

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tacreview/internal/analysis"
	"tacreview/internal/fileutil"
	"tacreview/internal/services"
)

// Saved is what a previous run left on disk.
type Saved struct {
	Metadata Metadata
	Analyses []analysis.FrameAnalysis
}

// Load reads the metadata and the per-frame analyses it accounts for: frames
// in the recorded plan that were not skipped. Analyses are returned in
// extraction order.
func Load(layout Layout) (Saved, error) {
	var saved Saved
	if err := fileutil.ReadJSON(layout.MetadataPath(), &saved.Metadata); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Saved{}, services.Wrap(services.ErrNotFound, "artifacts", "load metadata", layout.MetadataPath(), err)
		}
		return Saved{}, services.Wrap(services.ErrDecode, "artifacts", "load metadata", layout.MetadataPath(), err)
	}

	dir := filepath.Join(layout.Root, AnalysisDir)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Saved{}, services.Wrap(services.ErrTransient, "artifacts", "list analyses", dir, err)
	}
	wanted := make(map[int]bool, saved.Metadata.Plan.Len())
	for _, sample := range saved.Metadata.Plan.Samples {
		wanted[sample.Order] = true
	}
	for _, index := range saved.Metadata.Skipped {
		delete(wanted, index)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "analysis_") || filepath.Ext(name) != ".json" {
			continue
		}
		var result analysis.FrameAnalysis
		path := filepath.Join(dir, name)
		if err := fileutil.ReadJSON(path, &result); err != nil {
			return Saved{}, services.Wrap(services.ErrDecode, "artifacts", "load analysis", path, err)
		}
		if !wanted[result.FrameIndex] {
			continue
		}
		saved.Analyses = append(saved.Analyses, result)
	}
	slices.SortStableFunc(saved.Analyses, func(a, b analysis.FrameAnalysis) int {
		return a.FrameIndex - b.FrameIndex
	})
	return saved, nil
}
