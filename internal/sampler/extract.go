package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"

	"tacreview/internal/logging"
	"tacreview/internal/services"
)

// ExtractedFrame is a decoded, resized frame. It is not mutated after creation.
type ExtractedFrame struct {
	// Index is the 0-based plan order. Skipped positions leave gaps.
	Index            int         `json:"index"`
	FrameIndex       int         `json:"frame_index"`
	Position         float64     `json:"position"`
	TimestampSeconds float64     `json:"timestamp"`
	Image            image.Image `json:"-"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
}

// Decoder opens video sources for random frame access.
type Decoder interface {
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream is an open video handle owned by a single extraction.
type Stream interface {
	ReadFrame(ctx context.Context, frameIndex int) (image.Image, error)
	Close() error
}

// Extractor pulls planned frames out of a video.
type Extractor struct {
	decoder   Decoder
	resizeMax int
	logger    *slog.Logger
}

// NewExtractor constructs an Extractor. resizeMax <= 0 disables resizing.
func NewExtractor(decoder Decoder, resizeMax int, logger *slog.Logger) *Extractor {
	return &Extractor{
		decoder:   decoder,
		resizeMax: resizeMax,
		logger:    logging.NewComponentLogger(logger, "sampler"),
	}
}

// Extract reads every sample in plan. Unreadable positions are logged and
// skipped; when nothing could be read the error carries
// services.ErrNoFramesExtracted. The decoder stream is closed before return.
func (e *Extractor) Extract(ctx context.Context, path string, plan SamplePlan) ([]ExtractedFrame, error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "extract", "stat", path, statErr)
		}
		return nil, services.Wrap(services.ErrDecode, "extract", "stat", path, statErr)
	}

	stream, err := e.decoder.Open(ctx, path)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrDecode) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrDecode, "extract", "open", path, err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			e.logger.Debug("decoder close failed", logging.Error(closeErr))
		}
	}()

	logger := logging.WithContext(ctx, e.logger)
	if plan.Warning != "" {
		logging.WarnWithContext(logger, "short video", "short_video",
			logging.String("detail", plan.Warning),
			logging.String(logging.FieldImpact, "fewer distinct frames than requested"),
			logging.String(logging.FieldErrorHint, "use a longer clip or lower frames.count"),
		)
	}

	frames := make([]ExtractedFrame, 0, plan.Len())
	for _, sample := range plan.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, readErr := stream.ReadFrame(ctx, sample.FrameIndex)
		if readErr == nil && img == nil {
			readErr = errors.New("decoder returned no image")
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			wrapped := services.Wrap(services.ErrFrameRead, "extract", "read", fmt.Sprintf("%s frame %d", path, sample.FrameIndex), readErr)
			logging.WarnWithContext(logger, "frame read failed; skipping position", "frame_read_failed",
				logging.Int(logging.FieldFrameIndex, sample.Order),
				logging.Int("source_frame", sample.FrameIndex),
				logging.Error(wrapped),
				logging.String(logging.FieldImpact, "position excluded from analysis"),
			)
			continue
		}

		resized := Resize(img, e.resizeMax)
		bounds := resized.Bounds()
		frames = append(frames, ExtractedFrame{
			Index:            sample.Order,
			FrameIndex:       sample.FrameIndex,
			Position:         sample.Position,
			TimestampSeconds: sample.TimestampSeconds,
			Image:            resized,
			Width:            bounds.Dx(),
			Height:           bounds.Dy(),
		})
		logger.Debug("frame extracted",
			logging.Int(logging.FieldFrameIndex, sample.Order),
			logging.Int("source_frame", sample.FrameIndex),
			logging.Float64("timestamp", sample.TimestampSeconds),
		)
	}

	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrNoFramesExtracted, "extract", "", fmt.Sprintf("%s: 0 of %d positions readable", path, plan.Len()), nil)
	}
	return frames, nil
}
