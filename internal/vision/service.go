package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"tacreview/internal/analysis"
	"tacreview/internal/logging"
	"tacreview/internal/metrics"
	"tacreview/internal/services"
	"tacreview/internal/services/llm"
)

// Request kinds, used as metric labels.
const (
	KindAnalysis   = "analysis"
	KindAnnotation = "annotation"
)

const (
	breakerName        = "vision"
	defaultOpenTimeout = 30 * time.Second
)

// Frame is an encoded frame ready to send to the model.
type Frame struct {
	// Index is the 0-based extraction order.
	Index            int
	SourceFrame      int
	TimestampSeconds float64
	JPEG             []byte
}

// Service scores a single frame.
type Service interface {
	Analyze(ctx context.Context, frame Frame) (analysis.FrameAnalysis, error)
}

// Annotator returns overlay layout for an analyzed frame.
type Annotator interface {
	Annotate(ctx context.Context, frame Frame, result analysis.FrameAnalysis) (analysis.Annotation, error)
}

// Completer is the subset of llm.Client the analyzer needs.
type Completer interface {
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, images ...llm.Image) (string, error)
}

// Options tunes an Analyzer.
type Options struct {
	ScenarioContext string
	// FailureThreshold is the number of consecutive failed requests that
	// opens the breaker. Zero uses 5.
	FailureThreshold int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// Analyzer implements Service and Annotator on top of a vision model. Both
// request kinds share one circuit breaker.
type Analyzer struct {
	analysisClient   Completer
	annotationClient Completer
	scenario         string
	breaker          *gobreaker.CircuitBreaker[string]
	logger           *slog.Logger
}

// NewAnalyzer builds an Analyzer. annotationClient may be nil, in which case
// annotation requests go to analysisClient.
func NewAnalyzer(analysisClient, annotationClient Completer, opts Options) *Analyzer {
	if annotationClient == nil {
		annotationClient = analysisClient
	}
	threshold := opts.FailureThreshold
	if threshold < 1 {
		threshold = 5
	}
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	logger := logging.NewComponentLogger(opts.Logger, "vision")
	a := &Analyzer{
		analysisClient:   analysisClient,
		annotationClient: annotationClient,
		scenario:         opts.ScenarioContext,
		logger:           logger,
	}
	a.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String(), float64(to))
			if to == gobreaker.StateOpen {
				logging.WarnWithContext(logger, "vision circuit breaker opened", "breaker_open",
					logging.String("from", from.String()),
					logging.Int("threshold", threshold),
					logging.String(logging.FieldErrorHint, "check llm.api_key, model availability, and provider status"),
					logging.String(logging.FieldImpact, "remaining frames are skipped until the breaker recovers"),
				)
				return
			}
			logger.Info("vision circuit breaker state changed",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	})
	return a
}

// BreakerState reports the breaker state as gobreaker names it.
func (a *Analyzer) BreakerState() string {
	return a.breaker.State().String()
}

// Analyze requests a tactical score for frame. The returned analysis carries
// the frame's index and timestamp regardless of what the model echoed.
func (a *Analyzer) Analyze(ctx context.Context, frame Frame) (analysis.FrameAnalysis, error) {
	start := time.Now()
	result, err := a.analyze(ctx, frame)
	metrics.RecordAnalysis(KindAnalysis, time.Since(start), err)
	return result, err
}

func (a *Analyzer) analyze(ctx context.Context, frame Frame) (analysis.FrameAnalysis, error) {
	detail := fmt.Sprintf("frame %d at %.1fs", frame.Index, frame.TimestampSeconds)
	if len(frame.JPEG) == 0 {
		return analysis.FrameAnalysis{}, services.Wrap(services.ErrAnalysisService, KindAnalysis, "prepare request", detail+": no image data", nil)
	}
	var result analysis.FrameAnalysis
	err := a.call(ctx, a.analysisClient, AnalysisPrompt, analysisUserPrompt(frame, a.scenario), frame.JPEG, func(content string) error {
		decoded, err := decodeAnalysis(content)
		if err != nil {
			return services.Wrap(services.ErrAnalysisService, KindAnalysis, "decode response", detail, err)
		}
		decoded.FrameIndex = frame.Index
		decoded.SourceFrame = frame.SourceFrame
		decoded.TimestampSeconds = frame.TimestampSeconds
		if err := decoded.Validate(); err != nil {
			return services.Wrap(services.ErrAnalysisService, KindAnalysis, "validate response", detail, err)
		}
		result = decoded
		return nil
	})
	if err != nil {
		return analysis.FrameAnalysis{}, requestError(KindAnalysis, detail, err)
	}
	return result, nil
}

// Annotate requests soldier positions, threat axes, and blindspots for an
// analyzed frame.
func (a *Analyzer) Annotate(ctx context.Context, frame Frame, result analysis.FrameAnalysis) (analysis.Annotation, error) {
	start := time.Now()
	annotation, err := a.annotate(ctx, frame, result)
	metrics.RecordAnalysis(KindAnnotation, time.Since(start), err)
	return annotation, err
}

func (a *Analyzer) annotate(ctx context.Context, frame Frame, result analysis.FrameAnalysis) (analysis.Annotation, error) {
	detail := fmt.Sprintf("frame %d at %.1fs", frame.Index, frame.TimestampSeconds)
	if len(frame.JPEG) == 0 {
		return analysis.Annotation{}, services.Wrap(services.ErrAnalysisService, KindAnnotation, "prepare request", detail+": no image data", nil)
	}
	var annotation analysis.Annotation
	err := a.call(ctx, a.annotationClient, AnnotationPrompt, annotationUserPrompt(frame, result), frame.JPEG, func(content string) error {
		decoded, err := decodeAnnotation(content)
		if err != nil {
			return services.Wrap(services.ErrAnalysisService, KindAnnotation, "decode response", detail, err)
		}
		annotation = decoded
		return nil
	})
	if err != nil {
		return analysis.Annotation{}, requestError(KindAnnotation, detail, err)
	}
	return annotation, nil
}

// call sends one vision request and hands the reply to accept. Transport,
// decode, and validation failures all count against the breaker.
func (a *Analyzer) call(ctx context.Context, client Completer, system, user string, jpeg []byte, accept func(content string) error) error {
	_, err := a.breaker.Execute(func() (string, error) {
		content, err := client.CompleteVisionJSON(ctx, system, user, llm.JPEG(jpeg))
		if err != nil {
			return "", err
		}
		return content, accept(content)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", services.ErrBreakerOpen, err)
	}
	return err
}

// requestError wraps transport and breaker failures. Reply errors from
// accept are already wrapped.
func requestError(kind, detail string, err error) error {
	if errors.Is(err, services.ErrAnalysisService) {
		return err
	}
	return services.Wrap(services.ErrAnalysisService, kind, "vision request", detail, err)
}
