package sampler

import (
	"errors"
	"fmt"
	"math"
)

// Sample is one planned extraction point.
type Sample struct {
	// Order is the 0-based position in the plan (extraction order).
	Order            int     `json:"order"`
	Position         float64 `json:"position"`
	FrameIndex       int     `json:"frame_index"`
	TimestampSeconds float64 `json:"timestamp"`
}

// SamplePlan is the ordered list of frames to extract from one video.
type SamplePlan struct {
	Samples []Sample `json:"samples"`
	// Warning is set when the video has fewer frames than requested. It is
	// informational; callers still attempt every computable sample.
	Warning string `json:"warning,omitempty"`
}

// Len returns the number of planned samples.
func (p SamplePlan) Len() int {
	return len(p.Samples)
}

// Plan maps fractional positions onto frame indices. Positions beyond
// maxFrames are dropped without reordering.
func Plan(video VideoMetadata, positions []float64, maxFrames int) (SamplePlan, error) {
	if len(positions) == 0 {
		return SamplePlan{}, errors.New("sample plan: at least one position is required")
	}
	if maxFrames < 1 {
		return SamplePlan{}, fmt.Errorf("sample plan: max frames must be at least 1, got %d", maxFrames)
	}
	if video.FPS <= 0 || math.IsNaN(video.FPS) {
		return SamplePlan{}, fmt.Errorf("sample plan: invalid frame rate %v", video.FPS)
	}
	if video.TotalFrames < 0 {
		return SamplePlan{}, fmt.Errorf("sample plan: invalid frame count %d", video.TotalFrames)
	}

	retained := positions
	if len(retained) > maxFrames {
		retained = retained[:maxFrames]
	}
	for i, p := range retained {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return SamplePlan{}, fmt.Errorf("sample plan: position %d out of range [0,1]: %v", i, p)
		}
	}

	var plan SamplePlan
	if video.TotalFrames < maxFrames {
		plan.Warning = fmt.Sprintf("video has only %d frames, fewer than the %d requested", video.TotalFrames, maxFrames)
	}
	if video.TotalFrames == 0 {
		return plan, nil
	}

	plan.Samples = make([]Sample, 0, len(retained))
	for i, p := range retained {
		idx := FrameIndexAt(video.TotalFrames, p)
		plan.Samples = append(plan.Samples, Sample{
			Order:            i,
			Position:         p,
			FrameIndex:       idx,
			TimestampSeconds: float64(idx) / video.FPS,
		})
	}
	return plan, nil
}

// FrameIndexAt returns floor(total × position) clamped to [0, total-1].
func FrameIndexAt(total int, position float64) int {
	if total <= 0 {
		return 0
	}
	idx := int(math.Floor(float64(total) * position))
	if idx < 0 {
		return 0
	}
	if idx > total-1 {
		return total - 1
	}
	return idx
}
