package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tacreview/internal/analysis"
	"tacreview/internal/artifacts"
	"tacreview/internal/config"
	"tacreview/internal/logging"
	"tacreview/internal/metrics"
	"tacreview/internal/notifications"
	"tacreview/internal/overlay"
	"tacreview/internal/report"
	"tacreview/internal/sampler"
	"tacreview/internal/services"
	"tacreview/internal/store"
	"tacreview/internal/vision"
)

// RunStore is the subset of store.Store the pipeline records history through.
type RunStore interface {
	StartRun(ctx context.Context, run store.Run) (*store.Run, error)
	RecordFrame(ctx context.Context, runID string, frame store.FrameResult) error
	CompleteRun(ctx context.Context, runID string, result store.Completion) error
	FailRun(ctx context.Context, runID string, status store.Status, message string) error
	MarkInterrupted(ctx context.Context, outputDir string) (int64, error)
}

// Dependencies are the collaborators a Pipeline drives. Prober, Decoder, and
// Vision are required; the rest are optional.
type Dependencies struct {
	Prober  sampler.Prober
	Decoder sampler.Decoder
	Vision  vision.Service
	// Annotator supplies soldier and blindspot layout. Nil draws the base
	// overlay only.
	Annotator   vision.Annotator
	Renderer    overlay.Renderer
	Infographic overlay.InfographicGenerator
	Store       RunStore
	Notifier    notifications.Service
	// Model is recorded in run metadata.
	Model string
}

// Pipeline samples, analyzes, and summarizes one video per Run call.
type Pipeline struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Pipeline. Missing optional collaborators get defaults.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if deps.Prober == nil || deps.Decoder == nil || deps.Vision == nil {
		return nil, errors.New("pipeline: prober, decoder, and vision service are required")
	}
	if deps.Renderer == nil {
		deps.Renderer = overlay.NewPainter()
	}
	if deps.Infographic == nil {
		deps.Infographic = overlay.Disabled{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    time.Now,
	}, nil
}

// SkippedFrame is a sampled position excluded from aggregation.
type SkippedFrame struct {
	Index            int
	SourceFrame      int
	TimestampSeconds float64
	// Stage is "extract" or "analysis", and empty when read back from saved
	// metadata.
	Stage string
	Err   error
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	Video       sampler.VideoMetadata
	Plan        sampler.SamplePlan
	Analyses    []analysis.FrameAnalysis
	Skipped     []SkippedFrame
	Summary     analysis.Summary
	Document    report.Document
	Report      string
	Layout      artifacts.Layout
	Infographic string
	Duration    time.Duration

	recorded bool
}

// Limits returns the input acceptance thresholds from cfg.
func Limits(cfg *config.Config) sampler.InputLimits {
	return sampler.InputLimits{
		SupportedFormats:   cfg.Video.SupportedFormats,
		MaxDurationSeconds: float64(cfg.Video.MaxDurationSeconds),
		MaxFileSizeBytes:   cfg.MaxFileSizeBytes(),
	}
}

// Validate checks a video against the configured limits without extracting.
func (p *Pipeline) Validate(ctx context.Context, path string) (sampler.VideoMetadata, error) {
	return sampler.ValidateInput(ctx, p.deps.Prober, path, Limits(p.cfg))
}

// Run processes path end to end: validate, plan, extract, analyze, annotate,
// aggregate, and persist. Frames whose analysis fails are skipped; the run
// fails only when no frame could be analyzed.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	start := p.now()
	res := &Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, res.RunID)
	ctx = services.WithVideo(ctx, sampler.VideoName(path))
	logger := logging.WithContext(ctx, p.logger)

	err := p.run(ctx, logger, path, res)
	res.Duration = p.now().Sub(start)
	metrics.RecordRun(res.Duration, res.Summary.Overall.Average, err)
	if writeErr := metrics.WriteTextfile(p.cfg.Metrics.Textfile); writeErr != nil {
		logging.WarnWithContext(logger, "metrics textfile write failed", "metrics_write_failed",
			logging.String("path", p.cfg.Metrics.Textfile),
			logging.Error(writeErr),
			logging.String(logging.FieldImpact, "metrics for this run are not exported"),
			logging.String(logging.FieldErrorHint, "check metrics.textfile directory permissions"),
		)
	}
	if err != nil {
		p.failRun(ctx, logger, path, res, err)
		p.notify(logger, func(ctx context.Context) error {
			return p.deps.Notifier.NotifyRunFailed(ctx, sampler.VideoName(path), err)
		})
		return nil, err
	}

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Float64("average_score", res.Summary.Overall.DisplayAverage()),
		logging.String("rating", res.Summary.Overall.Rating),
		logging.Bool("benchmark_passed", res.Summary.Benchmark.Passed),
		logging.Int("frames_analyzed", len(res.Analyses)),
		logging.Int("frames_skipped", len(res.Skipped)),
		logging.Duration("duration", res.Duration),
	)
	p.notify(logger, func(ctx context.Context) error {
		return p.deps.Notifier.NotifyRunCompleted(ctx, notifications.RunSummary{
			Video:          res.Video.Name,
			AverageScore:   res.Summary.Overall.Average,
			Rating:         res.Summary.Overall.Rating,
			Passed:         res.Summary.Benchmark.Passed,
			Threshold:      res.Summary.Benchmark.Threshold,
			FramesAnalyzed: len(res.Analyses),
			FramesSkipped:  len(res.Skipped),
			Duration:       res.Duration,
		})
	})
	return res, nil
}

// notify runs send detached from run cancellation. Delivery failures are
// logged only.
func (p *Pipeline) notify(logger *slog.Logger, send func(context.Context) error) {
	if err := send(context.Background()); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run results are unaffected"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, path string, res *Result) error {
	err := p.stage(ctx, "validate", func(ctx context.Context) error {
		meta, err := p.Validate(ctx, path)
		res.Video = meta
		return err
	})
	if err != nil {
		return err
	}

	if err := p.stage(ctx, "plan", func(context.Context) error {
		plan, err := sampler.Plan(res.Video, p.cfg.Frames.Positions, p.cfg.Frames.Count)
		if err != nil {
			return services.Wrap(services.ErrInputValidation, "plan", "", res.Video.Name, err)
		}
		res.Plan = plan
		return nil
	}); err != nil {
		return err
	}

	res.Layout = artifacts.NewLayout(p.cfg.Paths.OutputDir, res.Video.Name)
	dir, err := artifacts.Open(res.Layout, p.cfg.Frames.Quality, p.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dir.Close(); closeErr != nil {
			logger.Debug("artifact lock release failed", logging.Error(closeErr))
		}
	}()
	if err := dir.Reset(); err != nil {
		return err
	}
	p.startRun(ctx, logger, res)

	var frames []sampler.ExtractedFrame
	if err := p.stage(ctx, "extract", func(ctx context.Context) error {
		extractor := sampler.NewExtractor(p.deps.Decoder, p.cfg.Frames.ResizeMax, p.logger)
		extracted, err := extractor.Extract(ctx, res.Video.Path, res.Plan)
		if err != nil {
			return err
		}
		frames = extracted
		metrics.FramesExtracted.Add(float64(len(frames)))
		res.Skipped = append(res.Skipped, missingSamples(res.Plan, frames)...)
		for _, frame := range frames {
			if _, err := dir.WriteFrame(frame); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, skipped := range res.Skipped {
		metrics.RecordSkippedFrame(skipped.Stage)
		p.recordFrame(ctx, logger, res.recorded, res.RunID, skippedResult(skipped))
	}

	if err := p.stage(ctx, "analyze", func(ctx context.Context) error {
		analyses, skipped, err := p.analyzeFrames(ctx, dir, res, frames)
		res.Analyses = analyses
		res.Skipped = append(res.Skipped, skipped...)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, "aggregate", func(context.Context) error {
		summary, err := analysis.Aggregate(res.Analyses, res.Video,
			analysis.WithBenchmarkThreshold(p.cfg.Analysis.BenchmarkThreshold))
		if err != nil {
			return err
		}
		res.Summary = summary
		res.Document = report.MachineReadable(summary)
		res.Report = report.Text(summary)
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, "persist", func(ctx context.Context) error {
		return p.persist(ctx, dir, res)
	}); err != nil {
		return err
	}

	if p.cfg.Analysis.Infographic {
		res.Infographic = p.infographic(ctx, logger, dir, res)
	}
	p.completeRun(ctx, logger, res)
	return nil
}

func (p *Pipeline) persist(_ context.Context, dir *artifacts.Dir, res *Result) error {
	meta := artifacts.Metadata{
		RunID:     res.RunID,
		CreatedAt: p.now().UTC(),
		Model:     p.deps.Model,
		Video:     res.Video,
		Plan:      res.Plan,
	}
	for _, skipped := range res.Skipped {
		meta.Skipped = append(meta.Skipped, skipped.Index)
	}
	if _, err := dir.WriteMetadata(meta); err != nil {
		return err
	}
	if _, err := dir.WriteSummary(res.Document); err != nil {
		return err
	}
	if _, err := dir.WriteReport(res.Report); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) infographic(ctx context.Context, logger *slog.Logger, dir *artifacts.Dir, res *Result) string {
	info, err := p.deps.Infographic.Generate(ctx, res.Summary, res.Analyses)
	switch {
	case errors.Is(err, overlay.ErrUnsupported):
		logger.Info("infographic unavailable; skipping", logging.String("reason", err.Error()))
		return ""
	case err != nil:
		logging.WarnWithContext(logger, "infographic generation failed", "infographic_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "summary and report were still written"),
			logging.String(logging.FieldErrorHint, "check llm.image_model supports image output"),
		)
		return ""
	}
	path, err := dir.WriteInfographic(info)
	if err != nil {
		logging.WarnWithContext(logger, "infographic write failed", "infographic_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "infographic not saved"),
		)
		return ""
	}
	return path
}

func missingSamples(plan sampler.SamplePlan, frames []sampler.ExtractedFrame) []SkippedFrame {
	read := make(map[int]struct{}, len(frames))
	for _, frame := range frames {
		read[frame.Index] = struct{}{}
	}
	var skipped []SkippedFrame
	for _, sample := range plan.Samples {
		if _, ok := read[sample.Order]; ok {
			continue
		}
		skipped = append(skipped, SkippedFrame{
			Index:            sample.Order,
			SourceFrame:      sample.FrameIndex,
			TimestampSeconds: sample.TimestampSeconds,
			Stage:            "extract",
			Err:              services.Wrap(services.ErrFrameRead, "extract", "read", fmt.Sprintf("frame %d", sample.FrameIndex), nil),
		})
	}
	return skipped
}

func skippedResult(skipped SkippedFrame) store.FrameResult {
	result := store.FrameResult{
		FrameIndex:       skipped.Index,
		SourceFrame:      skipped.SourceFrame,
		TimestampSeconds: skipped.TimestampSeconds,
		Outcome:          store.OutcomeSkipped,
	}
	if skipped.Err != nil {
		result.ErrorMessage = skipped.Err.Error()
	}
	return result
}

func (p *Pipeline) startRun(ctx context.Context, logger *slog.Logger, res *Result) {
	if p.deps.Store == nil {
		return
	}
	if n, err := p.deps.Store.MarkInterrupted(ctx, res.Layout.Root); err != nil {
		logger.Debug("mark interrupted runs failed", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted runs failed", logging.Int64("count", n))
	}
	_, err := p.deps.Store.StartRun(ctx, store.Run{
		ID:            res.RunID,
		VideoName:     res.Video.Name,
		VideoPath:     res.Video.Path,
		OutputDir:     res.Layout.Root,
		Model:         p.deps.Model,
		FramesPlanned: res.Plan.Len(),
		StartedAt:     p.now(),
	})
	if err != nil {
		p.historyWarning(logger, "start run", err)
		return
	}
	res.recorded = true
}

func (p *Pipeline) recordFrame(ctx context.Context, logger *slog.Logger, recorded bool, runID string, frame store.FrameResult) {
	if p.deps.Store == nil || !recorded {
		return
	}
	if err := p.deps.Store.RecordFrame(ctx, runID, frame); err != nil {
		p.historyWarning(logger, "record frame", err)
	}
}

func (p *Pipeline) completeRun(ctx context.Context, logger *slog.Logger, res *Result) {
	if p.deps.Store == nil || !res.recorded {
		return
	}
	encoded, err := json.Marshal(res.Document)
	if err != nil {
		p.historyWarning(logger, "encode summary", err)
	}
	err = p.deps.Store.CompleteRun(ctx, res.RunID, store.Completion{
		AverageScore:    res.Summary.Overall.Average,
		Rating:          res.Summary.Overall.Rating,
		BenchmarkPassed: res.Summary.Benchmark.Passed,
		SummaryJSON:     encoded,
	})
	if err != nil {
		p.historyWarning(logger, "complete run", err)
	}
}

// failRun records a fatal error. Runs that failed before the output directory
// was locked get a fresh history row.
func (p *Pipeline) failRun(ctx context.Context, logger *slog.Logger, path string, res *Result, runErr error) {
	status := services.FailureStatus(runErr)
	logging.ErrorWithContext(logger, "run failed", "run_failed",
		logging.String("resolved_status", string(status)),
		logging.Error(runErr),
		logging.String(logging.FieldErrorHint, failureHint(runErr)),
	)
	if p.deps.Store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if !res.recorded {
		name := res.Video.Name
		if name == "" {
			name = sampler.VideoName(path)
		}
		if _, err := p.deps.Store.StartRun(ctx, store.Run{ID: res.RunID, VideoName: name, VideoPath: path, Model: p.deps.Model, StartedAt: p.now()}); err != nil {
			p.historyWarning(logger, "start run", err)
			return
		}
	}
	if err := p.deps.Store.FailRun(ctx, res.RunID, store.Status(status), runErr.Error()); err != nil {
		p.historyWarning(logger, "fail run", err)
	}
}

func (p *Pipeline) historyWarning(logger *slog.Logger, op string, err error) {
	logging.WarnWithContext(logger, "run history update failed", "history_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "run artifacts are unaffected; history may be incomplete"),
		logging.String(logging.FieldErrorHint, "check paths.state_dir is writable"),
	)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "check the video path"
	case errors.Is(err, services.ErrInputValidation):
		return "check video.supported_formats and size/duration limits"
	case errors.Is(err, services.ErrDecode), errors.Is(err, services.ErrNoFramesExtracted):
		return "verify the file plays and ffmpeg is installed"
	case errors.Is(err, services.ErrEmptyInput):
		return "every frame analysis failed; check llm settings and provider status"
	case errors.Is(err, artifacts.ErrLocked):
		return "another tacreview run is writing this video's output"
	default:
		return "check logs for details"
	}
}
