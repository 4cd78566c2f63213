package pipeline

import (
	"context"
	"log/slog"

	"tacreview/internal/analysis"
	"tacreview/internal/artifacts"
	"tacreview/internal/logging"
	"tacreview/internal/report"
	"tacreview/internal/services"
)

// Summarize rebuilds summary.json and report.txt for videoName from the
// per-frame analyses a previous run saved. The vision model is not called.
func (p *Pipeline) Summarize(ctx context.Context, videoName string) (*Result, error) {
	return Summarize(ctx, artifacts.NewLayout(p.cfg.Paths.OutputDir, videoName), p.cfg.Analysis.BenchmarkThreshold, p.cfg.Frames.Quality, p.logger)
}

// Summarize is the model-free re-aggregation used by the summarize command.
// It takes the output directory lock like a full run.
func Summarize(ctx context.Context, layout artifacts.Layout, benchmarkThreshold, quality int, logger *slog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := artifacts.Open(layout, quality, logger)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	saved, err := artifacts.Load(layout)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, saved.Metadata.RunID)
	ctx = services.WithVideo(ctx, saved.Metadata.Video.Name)
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "summarize"))

	summary, err := analysis.Aggregate(saved.Analyses, saved.Metadata.Video, analysis.WithBenchmarkThreshold(benchmarkThreshold))
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:    saved.Metadata.RunID,
		Video:    saved.Metadata.Video,
		Plan:     saved.Metadata.Plan,
		Analyses: saved.Analyses,
		Summary:  summary,
		Document: report.MachineReadable(summary),
		Report:   report.Text(summary),
		Layout:   layout,
	}
	for _, index := range saved.Metadata.Skipped {
		res.Skipped = append(res.Skipped, SkippedFrame{Index: index})
	}
	if _, err := dir.WriteSummary(res.Document); err != nil {
		return nil, err
	}
	if _, err := dir.WriteReport(res.Report); err != nil {
		return nil, err
	}
	log.Info("summary rebuilt from saved analyses",
		logging.String(logging.FieldEventType, "summary_rebuilt"),
		logging.Int("frames", len(saved.Analyses)),
		logging.Float64("average_score", summary.Overall.DisplayAverage()),
	)
	return res, nil
}
