package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tacreview/internal/analysis"
)

const ruleWidth = 80

var (
	rule       = strings.Repeat("=", ruleWidth)
	upperCaser = cases.Upper(language.English)
	titleCaser = cases.Title(language.English)
)

// HumanReadable renders summary as report lines. Section order is fixed:
// header, overall performance, frame-by-frame scores, cover utilization,
// tactical errors, tactical strengths, training recommendations, footer.
func HumanReadable(summary analysis.Summary) []string {
	lines := make([]string, 0, 64)
	section := func(title string) {
		lines = append(lines, "", rule, title, rule, "")
	}

	lines = append(lines, rule, "TACTICAL PERFORMANCE SUMMARY", rule, "")
	lines = append(lines,
		"Video: "+summary.VideoName,
		fmt.Sprintf("Duration: %.1f seconds", summary.DurationSeconds),
		fmt.Sprintf("Frames Analyzed: %d", summary.FrameCount),
		fmt.Sprintf("Total Soldiers: %d", summary.TotalSoldiers),
		"Formations Used: "+formationList(summary.FormationsUsed),
	)

	section("OVERALL PERFORMANCE")
	lines = append(lines,
		fmt.Sprintf("Average Score: %.1f/100", summary.Overall.DisplayAverage()),
		"Rating: "+summary.Overall.Rating,
		fmt.Sprintf("Score Range: %d-%d", summary.Overall.Min, summary.Overall.Max),
		fmt.Sprintf("Benchmark: %s (threshold %d)", passLabel(summary.Benchmark.Passed), summary.Benchmark.Threshold),
	)

	section("FRAME-BY-FRAME SCORES")
	for _, f := range summary.Frames {
		lines = append(lines, fmt.Sprintf("Frame %d (T=%.1fs): %d/100 - %s",
			f.Index+1, f.TimestampSeconds, f.Score, upperCaser.String(f.Formation)))
	}

	section("COVER UTILIZATION")
	c := summary.CoverTotals
	lines = append(lines,
		fmt.Sprintf("Full Cover: %d instances", c.FullCover),
		fmt.Sprintf("Partial Cover: %d instances", c.PartialCover),
		fmt.Sprintf("No Cover: %d instances", c.NoCover),
		fmt.Sprintf("Exposed: %d instances", c.Exposed),
	)

	section(fmt.Sprintf("TACTICAL ERRORS (%d total)", summary.Errors.Total))
	lines = appendNumbered(lines, summary.Errors.Examples)

	section(fmt.Sprintf("TACTICAL STRENGTHS (%d total)", summary.Strengths.Total))
	lines = appendNumbered(lines, summary.Strengths.Examples)

	section("TRAINING RECOMMENDATIONS")
	lines = appendNumbered(lines, summary.Recommendations)

	lines = append(lines, "", rule, "END OF REPORT", rule)
	return lines
}

// Text joins HumanReadable lines with newlines and a trailing newline.
func Text(summary analysis.Summary) string {
	return strings.Join(HumanReadable(summary), "\n") + "\n"
}

func appendNumbered(lines []string, items []string) []string {
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return lines
}

func formationList(formations []string) string {
	if len(formations) == 0 {
		return "none"
	}
	labels := make([]string, len(formations))
	for i, f := range formations {
		labels[i] = titleCaser.String(f)
	}
	return strings.Join(labels, ", ")
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
