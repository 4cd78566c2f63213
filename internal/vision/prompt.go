package vision

import (
	"fmt"
	"strings"

	"tacreview/internal/analysis"
)

// DefaultScenario is sent when no scenario context is configured.
const DefaultScenario = "Urban warfare training exercise"

// AnalysisPrompt is the system prompt for per-frame tactical scoring.
const AnalysisPrompt = `You are a military tactics instructor reviewing a still frame from a small-unit urban warfare training exercise.

Evaluate the soldiers visible in the frame and score their tactical performance from 0 to 100.
Consider cover usage, spacing between soldiers, formation, weapon and muzzle discipline, and exposure to likely threat axes.
Count only soldiers you can actually see. Classify each soldier's cover as full, partial, none, or exposed.

Respond ONLY with JSON in this shape:
{
  "score": 0-100,
  "soldier_count": integer,
  "cover_summary": {"full_cover": integer, "partial_cover": integer, "no_cover": integer, "exposed": integer},
  "movement_analysis": {"formation": "wedge|line|column|stack|file|dispersed|unknown", "spacing": "tight|appropriate|wide|unknown"},
  "tactical_errors": ["short sentence", ...],
  "tactical_strengths": ["short sentence", ...],
  "primary_threats": [{"type": "window|doorway|rooftop|street|corner|other", "threat_level": "high|medium|low", "description": "where it is"}]
}`

// AnnotationPrompt is the system prompt for overlay layout requests.
const AnnotationPrompt = `You place tactical annotations on a training frame that has already been analyzed.

Locate every visible soldier and the direction each one is covering. Identify sectors no soldier is covering.
All coordinates are percentages of the image: x and y from 0 to 100 measured from the top-left corner.
Threat axis direction is in degrees, 0 pointing right and increasing clockwise. Length is a percentage of the shorter image side.

Respond ONLY with JSON in this shape:
{
  "soldiers": [{"position": {"x": 0-100, "y": 0-100}, "threat_axis": {"direction": 0-360, "length": 5-40}}],
  "blindspots": [{"area": {"x": 0-100, "y": 0-100, "width": 0-100, "height": 0-100}, "severity": "high|medium|low", "caption": "2-4 words"}]
}`

func analysisUserPrompt(frame Frame, scenario string) string {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		scenario = DefaultScenario
	}
	return fmt.Sprintf("Scenario: %s\nFrame timestamp: %.1f seconds\nAnalyze the attached frame.", scenario, frame.TimestampSeconds)
}

// tacticalSummary condenses an analysis into the briefing sent with an
// annotation request.
func tacticalSummary(a analysis.FrameAnalysis) string {
	var b strings.Builder
	c := a.CoverSummary
	fmt.Fprintf(&b, "COVER STATUS:\n  - Full Cover: %d soldiers\n  - Partial Cover: %d soldiers\n  - No Cover: %d soldiers\n  - Exposed: %d soldiers\n",
		c.FullCover, c.PartialCover, c.NoCover, c.Exposed)

	spacing := strings.TrimSpace(a.Movement.Spacing)
	if spacing == "" {
		spacing = analysis.UnknownFormation
	}
	fmt.Fprintf(&b, "\nFORMATION: %s\nSPACING: %s\n", strings.ToUpper(a.Formation()), strings.ToUpper(spacing))

	if threats := a.HighThreats(2); len(threats) > 0 {
		b.WriteString("\nKEY THREATS:\n")
		for _, threat := range threats {
			fmt.Fprintf(&b, "  - %s: %s\n", strings.ToUpper(threat.Type), threat.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func annotationUserPrompt(frame Frame, a analysis.FrameAnalysis) string {
	return fmt.Sprintf("Frame timestamp: %.1f seconds\nScore: %d/100\n\n%s\n\nReturn annotation positions for the attached frame.",
		frame.TimestampSeconds, a.Score, tacticalSummary(a))
}
