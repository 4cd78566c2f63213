package pipeline

import (
	"log/slog"

	"tacreview/internal/config"
	"tacreview/internal/notifications"
	"tacreview/internal/overlay"
	"tacreview/internal/sampler"
	"tacreview/internal/services/llm"
	"tacreview/internal/store"
	"tacreview/internal/vision"
)

// NewLLMClient builds a vision client from resolved settings.
func NewLLMClient(cfg config.LLMConfig, attempts int) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
	}, llm.WithRetryMaxAttempts(attempts))
}

// Wire builds the production collaborators for cfg: ffprobe and ffmpeg for
// media, the configured vision models, and the overlay painter. history may
// be nil to run without recording.
func Wire(cfg *config.Config, history *store.Store, logger *slog.Logger) Dependencies {
	prober := sampler.FFprobe{Binary: cfg.FFprobeBinary()}
	visionClient := NewLLMClient(cfg.VisionLLM(), cfg.Analysis.RetryAttempts)

	var annotationClient vision.Completer
	if cfg.Analysis.Annotate {
		annotationClient = NewLLMClient(cfg.AnnotationLLM(), cfg.Analysis.RetryAttempts)
	}
	analyzer := vision.NewAnalyzer(visionClient, annotationClient, vision.Options{
		ScenarioContext:  cfg.Analysis.ScenarioContext,
		FailureThreshold: cfg.Analysis.BreakerFailureThreshold,
		Logger:           logger,
	})

	deps := Dependencies{
		Prober:      prober,
		Decoder:     sampler.FFmpegDecoder{Binary: cfg.FFmpegBinary(), Prober: prober},
		Vision:      analyzer,
		Renderer:    overlay.NewPainter(),
		Infographic: overlay.Disabled{},
		Notifier:    notifications.NewService(cfg),
		Model:       visionClient.Model(),
	}
	if cfg.Analysis.Annotate {
		deps.Annotator = analyzer
	}
	if cfg.Analysis.Infographic {
		deps.Infographic = overlay.NewModelInfographic(NewLLMClient(cfg.ImageLLM(), 1))
	}
	if history != nil {
		deps.Store = history
	}
	return deps
}
