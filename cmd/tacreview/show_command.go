package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tacreview/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-frame results",
		Long:  "Show prints a recorded run. The id may be a unique prefix, such as the 8 characters listed by 'tacreview history'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			run, err := resolveRun(cmd, history, args[0])
			if err != nil {
				return err
			}
			frames, err := history.Frames(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			summary, err := history.Summary(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				payload := struct {
					Run     runView             `json:"run"`
					Frames  []frameView     `json:"frames"`
					Summary json.RawMessage `json:"summary,omitempty"`
				}{Run: newRunView(*run), Frames: frameViews(frames), Summary: summary}
				return writeJSON(cmd, payload)
			}
			printRun(cmd.OutOrStdout(), run, frames, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run, frames, and stored summary as JSON")
	return cmd
}

func printRun(out io.Writer, run *store.Run, frames []store.FrameResult, colorize bool) {
	for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Video", statusInfo, run.VideoName, colorize))
	if run.VideoPath != "" {
		fmt.Fprintln(out, renderStatusLine("Path", statusInfo, run.VideoPath, colorize))
	}
	if run.OutputDir != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputDir, colorize))
	}
	if run.Model != "" {
		fmt.Fprintln(out, renderStatusLine("Model", statusInfo, run.Model, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), formatStatus(run.Status), colorize))
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}
	if run.AverageScore != nil {
		passed := run.BenchmarkPassed != nil && *run.BenchmarkPassed
		verdict := fmt.Sprintf("%s (%s), benchmark passed: %s", formatScore(run.AverageScore), run.Rating, formatBenchmark(run.BenchmarkPassed))
		fmt.Fprintln(out, renderStatusLine("Score", ratingKind(passed), verdict, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Frames", statusInfo,
		fmt.Sprintf("%d planned, %d analyzed, %d skipped", run.FramesPlanned, run.FramesAnalyzed, run.FramesSkipped), colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format("2006-01-02 15:04:05"), colorize))
	if d := run.Duration(); d > 0 {
		fmt.Fprintln(out, renderStatusLine("Took", statusInfo, formatDuration(d), colorize))
	}

	if len(frames) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		score := "-"
		if f.Score != nil {
			score = fmt.Sprintf("%d", *f.Score)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", f.FrameIndex+1),
			fmt.Sprintf("%.1fs", f.TimestampSeconds),
			string(f.Outcome),
			score,
			f.Formation,
			f.ErrorMessage,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Frame", "Time", "Outcome", "Score", "Formation", "Error"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func runStatusKind(status store.Status) statusKind {
	switch status {
	case store.StatusCompleted:
		return statusOK
	case store.StatusFailed:
		return statusError
	case store.StatusReview:
		return statusWarn
	default:
		return statusInfo
	}
}

type frameView struct {
	Index       int     `json:"index"`
	SourceFrame int     `json:"source_frame"`
	Timestamp   float64 `json:"timestamp"`
	Outcome     string  `json:"outcome"`
	Score       *int    `json:"score,omitempty"`
	Formation   string  `json:"formation,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func frameViews(frames []store.FrameResult) []frameView {
	views := make([]frameView, 0, len(frames))
	for _, f := range frames {
		views = append(views, frameView{
			Index:       f.FrameIndex,
			SourceFrame: f.SourceFrame,
			Timestamp:   f.TimestampSeconds,
			Outcome:     string(f.Outcome),
			Score:       f.Score,
			Formation:   f.Formation,
			Error:       f.ErrorMessage,
		})
	}
	return views
}
