package report

import (
	"maps"

	"tacreview/internal/analysis"
)

// Document is the machine-readable summary. Field names are a compatibility
// contract with downstream consumers of summary.json.
type Document struct {
	VideoName          string                `json:"video_name"`
	Duration           float64               `json:"duration"`
	Resolution         [2]int                `json:"resolution"`
	FrameCount         int                   `json:"frame_count"`
	FramesAnalyzed     []FrameEntry          `json:"frames_analyzed"`
	OverallPerformance OverallPerformance    `json:"overall_performance"`
	CoverStatistics    analysis.CoverSummary `json:"cover_statistics"`
	TotalSoldiers      int                   `json:"total_soldiers"`
	FormationsUsed     []string              `json:"formations_used"`
	TacticalErrors     FindingsEntry         `json:"tactical_errors"`
	TacticalStrengths  FindingsEntry         `json:"tactical_strengths"`
	Recommendations    []string              `json:"recommendations"`
	Benchmark          BenchmarkEntry        `json:"benchmark"`
}

// FrameEntry is one row of frames_analyzed.
type FrameEntry struct {
	Index        int                   `json:"index"`
	Timestamp    float64               `json:"timestamp"`
	Score        int                   `json:"score"`
	Formation    string                `json:"formation"`
	SoldierCount int                   `json:"soldier_count"`
	CoverSummary analysis.CoverSummary `json:"cover_summary"`
}

// OverallPerformance carries the score statistics. AverageScore is rounded
// to one decimal place.
type OverallPerformance struct {
	AverageScore float64 `json:"average_score"`
	MinScore     int     `json:"min_score"`
	MaxScore     int     `json:"max_score"`
	ScoreRange   int     `json:"score_range"`
	Rating       string  `json:"rating"`
}

// FindingsEntry carries the totals, category counts, and examples for errors
// or strengths.
type FindingsEntry struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	Examples   []string       `json:"examples"`
}

// BenchmarkEntry is the pass/fail verdict against the configured threshold.
type BenchmarkEntry struct {
	Threshold int  `json:"threshold"`
	Passed    bool `json:"passed"`
}

// MachineReadable converts a Summary into its serializable form.
func MachineReadable(summary analysis.Summary) Document {
	doc := Document{
		VideoName:      summary.VideoName,
		Duration:       summary.DurationSeconds,
		Resolution:     summary.Resolution,
		FrameCount:     summary.FrameCount,
		FramesAnalyzed: make([]FrameEntry, 0, len(summary.Frames)),
		OverallPerformance: OverallPerformance{
			AverageScore: summary.Overall.DisplayAverage(),
			MinScore:     summary.Overall.Min,
			MaxScore:     summary.Overall.Max,
			ScoreRange:   summary.Overall.Range,
			Rating:       summary.Overall.Rating,
		},
		CoverStatistics:   summary.CoverTotals,
		TotalSoldiers:     summary.TotalSoldiers,
		FormationsUsed:    nonNil(summary.FormationsUsed),
		TacticalErrors:    findingsEntry(summary.Errors),
		TacticalStrengths: findingsEntry(summary.Strengths),
		Recommendations:   nonNil(summary.Recommendations),
		Benchmark: BenchmarkEntry{
			Threshold: summary.Benchmark.Threshold,
			Passed:    summary.Benchmark.Passed,
		},
	}
	for _, f := range summary.Frames {
		doc.FramesAnalyzed = append(doc.FramesAnalyzed, FrameEntry{
			Index:        f.Index,
			Timestamp:    f.TimestampSeconds,
			Score:        f.Score,
			Formation:    f.Formation,
			SoldierCount: f.SoldierCount,
			CoverSummary: f.Cover,
		})
	}
	return doc
}

func findingsEntry(f analysis.Findings) FindingsEntry {
	byCategory := make(map[string]int, len(f.ByCategory))
	maps.Copy(byCategory, f.ByCategory)
	return FindingsEntry{
		Total:      f.Total,
		ByCategory: byCategory,
		Examples:   nonNil(f.Examples),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string{}, values...)
}
