package analysis

import (
	"math"

	"tacreview/internal/sampler"
	"tacreview/internal/services"
)

// MaxExamples caps the error and strength examples kept in a Summary.
const MaxExamples = 5

// DefaultBenchmarkThreshold is the pass mark when none is configured.
const DefaultBenchmarkThreshold = 70

// FrameStat is the condensed per-frame entry of a Summary.
type FrameStat struct {
	Index            int
	TimestampSeconds float64
	Score            int
	Formation        string
	SoldierCount     int
	Cover            CoverSummary
}

// Overall holds score statistics. Average keeps full precision.
type Overall struct {
	Average float64
	Min     int
	Max     int
	Range   int
	Rating  string
}

// DisplayAverage rounds the average to one decimal place.
func (o Overall) DisplayAverage() float64 {
	return math.Round(o.Average*10) / 10
}

// Findings aggregates either errors or strengths.
type Findings struct {
	Total      int
	ByCategory map[string]int
	Examples   []string
}

// Benchmark records the pass/fail verdict against a threshold.
type Benchmark struct {
	Threshold int
	Passed    bool
}

// Summary is the aggregate verdict for one video. It is recomputed from
// scratch on every Aggregate call.
type Summary struct {
	VideoName       string
	DurationSeconds float64
	Resolution      [2]int
	FrameCount      int
	Frames          []FrameStat
	Overall         Overall
	CoverTotals     CoverSummary
	TotalSoldiers   int
	FormationsUsed  []string
	Errors          Findings
	Strengths       Findings
	Recommendations []string
	Benchmark       Benchmark
}

type options struct {
	benchmarkThreshold int
}

// Option customizes Aggregate.
type Option func(*options)

// WithBenchmarkThreshold sets the average score needed to pass.
func WithBenchmarkThreshold(threshold int) Option {
	return func(o *options) {
		o.benchmarkThreshold = threshold
	}
}

// Aggregate combines per-frame analyses into a Summary. It returns an error
// wrapping services.ErrEmptyInput when analyses is empty.
func Aggregate(analyses []FrameAnalysis, video sampler.VideoMetadata, opts ...Option) (Summary, error) {
	if len(analyses) == 0 {
		return Summary{}, services.Wrap(services.ErrEmptyInput, "aggregate", "", video.Name+": no frame analyses", nil)
	}
	cfg := options{benchmarkThreshold: DefaultBenchmarkThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	summary := Summary{
		VideoName:       video.Name,
		DurationSeconds: video.DurationSeconds,
		Resolution:      video.Resolution(),
		FrameCount:      len(analyses),
		Frames:          make([]FrameStat, 0, len(analyses)),
	}

	var (
		sum           int
		minScore      = analyses[0].Score
		maxScore      = analyses[0].Score
		allErrors     []string
		allStrengths  []string
		seenFormation = make(map[string]struct{})
	)
	for _, a := range analyses {
		sum += a.Score
		minScore = min(minScore, a.Score)
		maxScore = max(maxScore, a.Score)
		summary.CoverTotals = summary.CoverTotals.Add(a.CoverSummary)
		summary.TotalSoldiers += a.SoldierCount
		allErrors = append(allErrors, a.TacticalErrors...)
		allStrengths = append(allStrengths, a.TacticalStrengths...)

		formation := a.Formation()
		if _, ok := seenFormation[formation]; !ok {
			seenFormation[formation] = struct{}{}
			summary.FormationsUsed = append(summary.FormationsUsed, formation)
		}
		summary.Frames = append(summary.Frames, FrameStat{
			Index:            a.FrameIndex,
			TimestampSeconds: a.TimestampSeconds,
			Score:            a.Score,
			Formation:        formation,
			SoldierCount:     a.SoldierCount,
			Cover:            a.CoverSummary,
		})
	}

	average := float64(sum) / float64(len(analyses))
	summary.Overall = Overall{
		Average: average,
		Min:     minScore,
		Max:     maxScore,
		Range:   maxScore - minScore,
		Rating:  Rating(average),
	}
	summary.Errors = findings(allErrors, ErrorRules)
	summary.Strengths = findings(allStrengths, StrengthRules)
	summary.Recommendations = Recommend(average, summary.Errors.ByCategory, summary.Strengths.ByCategory)
	summary.Benchmark = Benchmark{
		Threshold: cfg.benchmarkThreshold,
		Passed:    average >= float64(cfg.benchmarkThreshold),
	}
	return summary, nil
}

func findings(items []string, rules []CategoryRule) Findings {
	examples := items
	if len(examples) > MaxExamples {
		examples = examples[:MaxExamples]
	}
	return Findings{
		Total:      len(items),
		ByCategory: Categorize(items, rules),
		Examples:   append([]string{}, examples...),
	}
}

// Rating bands use inclusive lower bounds.
const (
	RatingExcellent        = "Excellent"
	RatingGood             = "Good"
	RatingSatisfactory     = "Satisfactory"
	RatingNeedsImprovement = "Needs Improvement"
	RatingRemedial         = "Requires Remedial Training"
)

// Rating maps a score to its qualitative band.
func Rating(score float64) string {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 75:
		return RatingGood
	case score >= 60:
		return RatingSatisfactory
	case score >= 50:
		return RatingNeedsImprovement
	default:
		return RatingRemedial
	}
}
