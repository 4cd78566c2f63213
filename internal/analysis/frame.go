package analysis

import (
	"fmt"
	"strings"
)

// UnknownFormation is reported when the model returns no formation tag.
const UnknownFormation = "unknown"

// CoverSummary counts soldiers per cover status in one frame.
type CoverSummary struct {
	FullCover    int `json:"full_cover"`
	PartialCover int `json:"partial_cover"`
	NoCover      int `json:"no_cover"`
	Exposed      int `json:"exposed"`
}

// Add returns the elementwise sum of c and other.
func (c CoverSummary) Add(other CoverSummary) CoverSummary {
	return CoverSummary{
		FullCover:    c.FullCover + other.FullCover,
		PartialCover: c.PartialCover + other.PartialCover,
		NoCover:      c.NoCover + other.NoCover,
		Exposed:      c.Exposed + other.Exposed,
	}
}

// Compact renders "xF yP zN wE".
func (c CoverSummary) Compact() string {
	return fmt.Sprintf("%dF %dP %dN %dE", c.FullCover, c.PartialCover, c.NoCover, c.Exposed)
}

// Movement holds the formation and spacing tags for a frame.
type Movement struct {
	Formation string `json:"formation"`
	Spacing   string `json:"spacing"`
}

// Threat is a threat axis the model flagged in a frame.
type Threat struct {
	Type        string `json:"type"`
	ThreatLevel string `json:"threat_level"`
	Description string `json:"description"`
}

// FrameAnalysis is the vision service's verdict for one extracted frame. It is
// immutable once received.
type FrameAnalysis struct {
	// FrameIndex is the 0-based extraction order of the frame.
	FrameIndex        int          `json:"frame_index"`
	SourceFrame       int          `json:"source_frame"`
	TimestampSeconds  float64      `json:"timestamp"`
	Score             int          `json:"score"`
	SoldierCount      int          `json:"soldier_count"`
	CoverSummary      CoverSummary `json:"cover_summary"`
	Movement          Movement     `json:"movement_analysis"`
	TacticalErrors    []string     `json:"tactical_errors"`
	TacticalStrengths []string     `json:"tactical_strengths"`
	PrimaryThreats    []Threat     `json:"primary_threats,omitempty"`
}

// Formation returns the formation tag, or UnknownFormation when empty.
func (f FrameAnalysis) Formation() string {
	if tag := strings.TrimSpace(f.Movement.Formation); tag != "" {
		return tag
	}
	return UnknownFormation
}

// Validate checks the numeric ranges of a decoded analysis.
func (f FrameAnalysis) Validate() error {
	if f.Score < 0 || f.Score > 100 {
		return fmt.Errorf("score %d out of range [0,100]", f.Score)
	}
	if f.SoldierCount < 0 {
		return fmt.Errorf("soldier_count %d is negative", f.SoldierCount)
	}
	c := f.CoverSummary
	if c.FullCover < 0 || c.PartialCover < 0 || c.NoCover < 0 || c.Exposed < 0 {
		return fmt.Errorf("cover_summary has negative counts: %s", c.Compact())
	}
	return nil
}
