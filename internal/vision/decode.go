package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tacreview/internal/analysis"
	"tacreview/internal/services/llm"
)

// number accepts JSON integers, floats, and numeric strings. Models regularly
// answer 75.0 or "75" where an integer was asked for.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

func (n number) int() int {
	return int(math.Round(float64(n)))
}

type wireCover struct {
	FullCover    number `json:"full_cover"`
	PartialCover number `json:"partial_cover"`
	NoCover      number `json:"no_cover"`
	Exposed      number `json:"exposed"`
}

type wireAnalysis struct {
	Score             number            `json:"score"`
	SoldierCount      number            `json:"soldier_count"`
	CoverSummary      wireCover         `json:"cover_summary"`
	Movement          analysis.Movement `json:"movement_analysis"`
	TacticalErrors    []string          `json:"tactical_errors"`
	TacticalStrengths []string          `json:"tactical_strengths"`
	PrimaryThreats    []analysis.Threat `json:"primary_threats"`
}

func decodeAnalysis(content string) (analysis.FrameAnalysis, error) {
	var wire wireAnalysis
	if err := llm.DecodeJSON(content, &wire); err != nil {
		return analysis.FrameAnalysis{}, err
	}
	return analysis.FrameAnalysis{
		Score:        wire.Score.int(),
		SoldierCount: wire.SoldierCount.int(),
		CoverSummary: analysis.CoverSummary{
			FullCover:    wire.CoverSummary.FullCover.int(),
			PartialCover: wire.CoverSummary.PartialCover.int(),
			NoCover:      wire.CoverSummary.NoCover.int(),
			Exposed:      wire.CoverSummary.Exposed.int(),
		},
		Movement: analysis.Movement{
			Formation: strings.ToLower(strings.TrimSpace(wire.Movement.Formation)),
			Spacing:   strings.ToLower(strings.TrimSpace(wire.Movement.Spacing)),
		},
		TacticalErrors:    compact(wire.TacticalErrors),
		TacticalStrengths: compact(wire.TacticalStrengths),
		PrimaryThreats:    wire.PrimaryThreats,
	}, nil
}

type wirePoint struct {
	X number `json:"x"`
	Y number `json:"y"`
}

type wireAnnotation struct {
	Soldiers []struct {
		Position   wirePoint `json:"position"`
		ThreatAxis struct {
			Direction number `json:"direction"`
			Length    number `json:"length"`
		} `json:"threat_axis"`
	} `json:"soldiers"`
	Blindspots []struct {
		Area struct {
			X      number `json:"x"`
			Y      number `json:"y"`
			Width  number `json:"width"`
			Height number `json:"height"`
		} `json:"area"`
		Severity string `json:"severity"`
		Caption  string `json:"caption"`
	} `json:"blindspots"`
}

func decodeAnnotation(content string) (analysis.Annotation, error) {
	var wire wireAnnotation
	if err := llm.DecodeJSON(content, &wire); err != nil {
		return analysis.Annotation{}, err
	}
	var out analysis.Annotation
	for _, s := range wire.Soldiers {
		if s.ThreatAxis.Length == 0 {
			s.ThreatAxis.Length = defaultAxisLength
		}
		out.Soldiers = append(out.Soldiers, analysis.SoldierMarker{
			Position: analysis.Point{X: percent(s.Position.X), Y: percent(s.Position.Y)},
			ThreatAxis: analysis.ThreatAxis{
				Direction: math.Mod(float64(s.ThreatAxis.Direction), 360),
				Length:    percent(s.ThreatAxis.Length),
			},
		})
	}
	for _, b := range wire.Blindspots {
		caption := strings.TrimSpace(b.Caption)
		if caption == "" {
			caption = "Blindspot"
		}
		severity := strings.ToLower(strings.TrimSpace(b.Severity))
		if severity == "" {
			severity = "medium"
		}
		out.Blindspots = append(out.Blindspots, analysis.Blindspot{
			Area: analysis.Area{
				X:      percent(b.Area.X),
				Y:      percent(b.Area.Y),
				Width:  percent(b.Area.Width),
				Height: percent(b.Area.Height),
			},
			Severity: severity,
			Caption:  caption,
		})
	}
	return out, nil
}

const defaultAxisLength = 20

func percent(n number) float64 {
	return math.Max(0, math.Min(100, float64(n)))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
