package overlay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tacreview/internal/analysis"
	"tacreview/internal/services/llm"
)

// ErrUnsupported reports that no infographic could be produced, either
// because generation is disabled or because the model answered without an
// image.
var ErrUnsupported = errors.New("infographic generation unsupported")

// Infographic is an encoded summary image.
type Infographic struct {
	MIMEType string
	Data     []byte
}

// Extension returns the file extension matching the MIME type.
func (i Infographic) Extension() string {
	switch i.MIMEType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// InfographicGenerator renders a run summary as a single image.
type InfographicGenerator interface {
	Generate(ctx context.Context, summary analysis.Summary, frames []analysis.FrameAnalysis) (Infographic, error)
}

// Disabled always returns ErrUnsupported.
type Disabled struct{}

// Generate implements InfographicGenerator.
func (Disabled) Generate(context.Context, analysis.Summary, []analysis.FrameAnalysis) (Infographic, error) {
	return Infographic{}, ErrUnsupported
}

// ImageModel is the subset of llm.Client needed for image generation.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string, references ...llm.Image) (llm.Image, error)
}

// ModelInfographic asks an image-capable model to draw the summary.
type ModelInfographic struct {
	model ImageModel
}

// NewModelInfographic wraps model. A nil model yields a generator that
// always reports ErrUnsupported.
func NewModelInfographic(model ImageModel) InfographicGenerator {
	if model == nil {
		return Disabled{}
	}
	return &ModelInfographic{model: model}
}

// Generate implements InfographicGenerator. A reply without an image maps to
// ErrUnsupported.
func (g *ModelInfographic) Generate(ctx context.Context, summary analysis.Summary, frames []analysis.FrameAnalysis) (Infographic, error) {
	img, err := g.model.GenerateImage(ctx, InfographicPrompt(summary, frames))
	if errors.Is(err, llm.ErrNoImage) {
		return Infographic{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if err != nil {
		return Infographic{}, fmt.Errorf("generate infographic: %w", err)
	}
	return Infographic{MIMEType: img.MIMEType, Data: img.Data}, nil
}

// InfographicPrompt builds the generation prompt from the summary and the
// per-frame analyses.
func InfographicPrompt(summary analysis.Summary, frames []analysis.FrameAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a one-page tactical after-action infographic for the training video %q.\n", summary.VideoName)
	fmt.Fprintf(&b, "Duration: %.1f seconds. Frames analyzed: %d. Soldiers observed: %d.\n",
		summary.DurationSeconds, summary.FrameCount, summary.TotalSoldiers)
	fmt.Fprintf(&b, "Average score: %.1f/100 (%s). Tactical errors: %d. Tactical strengths: %d.\n\n",
		summary.Overall.DisplayAverage(), summary.Overall.Rating, summary.Errors.Total, summary.Strengths.Total)
	b.WriteString("Frame breakdown:\n")
	for _, f := range frames {
		keyError := "None"
		if len(f.TacticalErrors) > 0 {
			keyError = truncate(f.TacticalErrors[0], 100)
		}
		fmt.Fprintf(&b, "Frame %d (T=%.1fs): score %d/100, formation %s, soldiers %d, cover %s, key error: %s\n",
			f.FrameIndex+1, f.TimestampSeconds, f.Score, strings.ToUpper(f.Formation()), f.SoldierCount,
			f.CoverSummary.Compact(), keyError)
	}
	if len(summary.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range summary.Recommendations {
			b.WriteString("- " + rec + "\n")
		}
	}
	b.WriteString("\nUse a dark military style with clear score gauges and a cover utilization chart.")
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
