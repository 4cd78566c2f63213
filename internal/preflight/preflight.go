package preflight

import (
	"context"
	"fmt"

	"tacreview/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunLocal executes the checks that need no network: output and state
// directories, free space, and media binaries. The analyze command runs these
// before touching a video.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes))

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = status.Path
		} else {
			result.Detail = fmt.Sprintf("%s: %s", status.Description, status.Detail)
		}
		results = append(results, result)
	}
	return results
}

// RunAll executes the local checks plus the vision API health check.
// The image model is checked only when annotation or infographics use it.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := RunLocal(cfg)
	results = append(results, CheckLLM(ctx, "Vision LLM", cfg.VisionLLM()))
	if (cfg.Analysis.Annotate || cfg.Analysis.Infographic) && imageUsesDistinctModel(cfg) {
		results = append(results, CheckLLM(ctx, "Image LLM", cfg.ImageLLM()))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func imageUsesDistinctModel(cfg *config.Config) bool {
	return cfg.ImageLLM().Model != cfg.VisionLLM().Model
}
