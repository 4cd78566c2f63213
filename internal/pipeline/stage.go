package pipeline

import (
	"context"
	"time"

	"tacreview/internal/logging"
	"tacreview/internal/services"
)

// stage runs fn with the stage name attached to ctx and logs the outcome.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, p.logger)
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	start := p.now()
	if err := fn(stageCtx); err != nil {
		stageLogger.Debug("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("resolved_status", string(services.FailureStatus(err))),
			logging.Duration("duration", p.now().Sub(start)),
			logging.Error(err),
		)
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", roundDuration(p.now().Sub(start))),
	)
	return nil
}

func roundDuration(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
