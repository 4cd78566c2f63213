// Package analysis turns per-frame vision verdicts into one performance summary.
//
// Aggregate is a pure function: it computes score statistics, rating bands,
// cover totals, categorized error and strength counts, and an ordered
// recommendation list from a slice of FrameAnalysis values. Categories and
// recommendations are driven by the rule tables in rules.go.
package analysis
