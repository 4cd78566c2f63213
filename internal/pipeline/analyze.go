package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tacreview/internal/analysis"
	"tacreview/internal/artifacts"
	"tacreview/internal/logging"
	"tacreview/internal/metrics"
	"tacreview/internal/sampler"
	"tacreview/internal/services"
	"tacreview/internal/store"
	"tacreview/internal/vision"
)

type frameOutcome struct {
	analysis *analysis.FrameAnalysis
	skipped  *SkippedFrame
}

// analyzeFrames fans frames out over at most analysis.concurrency workers.
// Results come back in extraction order. Service failures skip the frame;
// anything else aborts the stage.
func (p *Pipeline) analyzeFrames(ctx context.Context, dir *artifacts.Dir, res *Result, frames []sampler.ExtractedFrame) ([]analysis.FrameAnalysis, []SkippedFrame, error) {
	outcomes := make([]frameOutcome, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Analysis.Concurrency))
	for i, frame := range frames {
		g.Go(func() error {
			outcome, err := p.analyzeFrame(services.WithFrameIndex(gctx, frame.Index), dir, res, frame)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		analyses []analysis.FrameAnalysis
		skipped  []SkippedFrame
	)
	for _, outcome := range outcomes {
		switch {
		case outcome.analysis != nil:
			analyses = append(analyses, *outcome.analysis)
		case outcome.skipped != nil:
			skipped = append(skipped, *outcome.skipped)
		}
	}
	return analyses, skipped, nil
}

func (p *Pipeline) analyzeFrame(ctx context.Context, dir *artifacts.Dir, res *Result, frame sampler.ExtractedFrame) (frameOutcome, error) {
	logger := logging.WithContext(ctx, p.logger)

	encoded, err := artifacts.EncodeJPEG(frame.Image, p.cfg.Frames.Quality)
	if err != nil {
		return frameOutcome{}, services.Wrap(services.ErrDecode, "analyze", "encode", fmt.Sprintf("frame %d", frame.Index), err)
	}
	request := vision.Frame{
		Index:            frame.Index,
		SourceFrame:      frame.FrameIndex,
		TimestampSeconds: frame.TimestampSeconds,
		JPEG:             encoded,
	}

	result, err := p.deps.Vision.Analyze(ctx, request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return frameOutcome{}, ctxErr
		}
		if !errors.Is(err, services.ErrAnalysisService) {
			return frameOutcome{}, err
		}
		skipped := SkippedFrame{
			Index:            frame.Index,
			SourceFrame:      frame.FrameIndex,
			TimestampSeconds: frame.TimestampSeconds,
			Stage:            "analysis",
			Err:              err,
		}
		impact := "frame excluded from the summary"
		if errors.Is(err, services.ErrBreakerOpen) {
			impact = "vision service unavailable; frame excluded from the summary"
		}
		logging.WarnWithContext(logger, "frame analysis failed; skipping frame", "frame_skipped",
			logging.Float64("timestamp", frame.TimestampSeconds),
			logging.Error(err),
			logging.String(logging.FieldImpact, impact),
			logging.String(logging.FieldErrorHint, "rerun later or check llm settings"),
		)
		metrics.RecordSkippedFrame(skipped.Stage)
		p.recordFrame(ctx, logger, res.recorded, res.RunID, skippedResult(skipped))
		return frameOutcome{skipped: &skipped}, nil
	}

	metrics.RecordFrameScore(result.Score)
	if _, err := dir.WriteAnalysis(result); err != nil {
		return frameOutcome{}, err
	}
	score := result.Score
	p.recordFrame(ctx, logger, res.recorded, res.RunID, store.FrameResult{
		FrameIndex:       result.FrameIndex,
		SourceFrame:      result.SourceFrame,
		TimestampSeconds: result.TimestampSeconds,
		Outcome:          store.OutcomeAnalyzed,
		Score:            &score,
		Formation:        result.Formation(),
	})
	logger.Info("frame analyzed",
		logging.Int("score", result.Score),
		logging.Int("soldiers", result.SoldierCount),
		logging.String("formation", result.Formation()),
	)

	if err := p.annotateFrame(ctx, logger, dir, request, frame, result); err != nil {
		return frameOutcome{}, err
	}
	return frameOutcome{analysis: &result}, nil
}

// annotateFrame renders the overlay image. Annotation and render failures are
// logged; only a failed write is returned.
func (p *Pipeline) annotateFrame(ctx context.Context, logger *slog.Logger, dir *artifacts.Dir, request vision.Frame, frame sampler.ExtractedFrame, result analysis.FrameAnalysis) error {
	var layout *analysis.Annotation
	if p.cfg.Analysis.Annotate && p.deps.Annotator != nil {
		annotation, err := p.deps.Annotator.Annotate(ctx, request, result)
		switch {
		case err == nil:
			layout = &annotation
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			logging.WarnWithContext(logger, "frame annotation failed; drawing base overlay", "annotation_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "annotated frame has score and cover only"),
			)
		}
	}

	img, err := p.deps.Renderer.Render(frame.Image, result, layout)
	if err != nil {
		logging.WarnWithContext(logger, "overlay render failed", "render_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no annotated image for this frame"),
		)
		return nil
	}
	_, err = dir.WriteAnnotated(frame.Index, frame.TimestampSeconds, img)
	return err
}
