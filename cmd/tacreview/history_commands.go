package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tacreview/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		video      string
		status     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analysis runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatusFilter(status)
			if err != nil {
				return err
			}
			history, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.ListRuns(cmd.Context(), store.ListOptions{
				Video:  strings.TrimSpace(video),
				Status: filter,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runViews(runs))
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&video, "video", "", "Only show runs for this video name")
	cmd.Flags().StringVar(&status, "status", "", "Only show runs with this status (running, completed, failed, review)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryRemoveCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			history, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			removed, err := history.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}

func newHistoryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <run-id>",
		Short: "Delete one run from history (artifacts are kept)",
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
			if err := history.DeleteRun(cmd.Context(), run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run %s\n", run.ID)
			return nil
		},
	}
}

func parseStatusFilter(raw string) (store.Status, error) {
	status := store.Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case "", store.StatusRunning, store.StatusCompleted, store.StatusFailed, store.StatusReview:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q (want running, completed, failed, or review)", raw)
	}
}

func resolveRun(cmd *cobra.Command, history *store.Store, idOrPrefix string) (*store.Run, error) {
	run, err := history.FindRun(cmd.Context(), idOrPrefix)
	if errors.Is(err, store.ErrAmbiguousID) {
		return nil, fmt.Errorf("%w; use more characters of the run id", err)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %q not found", idOrPrefix)
	}
	return run, nil
}

func renderRunTable(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.VideoName,
			formatStatus(run.Status),
			fmt.Sprintf("%d/%d", run.FramesAnalyzed, run.FramesPlanned),
			formatScore(run.AverageScore),
			run.Rating,
			formatBenchmark(run.BenchmarkPassed),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(run.Duration()),
		})
	}
	return renderTable(
		[]string{"ID", "Video", "Status", "Frames", "Score", "Rating", "Pass", "Started", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStatus(status store.Status) string {
	s := string(status)
	if s == "" {
		return "-"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *score)
}

func formatBenchmark(passed *bool) string {
	if passed == nil {
		return "-"
	}
	return yesNo(*passed)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

type runView struct {
	ID              string   `json:"id"`
	VideoName       string   `json:"video_name"`
	VideoPath       string   `json:"video_path,omitempty"`
	OutputDir       string   `json:"output_dir,omitempty"`
	Model           string   `json:"model,omitempty"`
	Status          string   `json:"status"`
	FramesPlanned   int      `json:"frames_planned"`
	FramesAnalyzed  int      `json:"frames_analyzed"`
	FramesSkipped   int      `json:"frames_skipped"`
	AverageScore    *float64 `json:"average_score,omitempty"`
	Rating          string   `json:"rating,omitempty"`
	BenchmarkPassed *bool    `json:"benchmark_passed,omitempty"`
	Error           string   `json:"error,omitempty"`
	StartedAt       string   `json:"started_at"`
	FinishedAt      string   `json:"finished_at,omitempty"`
}

func newRunView(run store.Run) runView {
	view := runView{
		ID:              run.ID,
		VideoName:       run.VideoName,
		VideoPath:       run.VideoPath,
		OutputDir:       run.OutputDir,
		Model:           run.Model,
		Status:          string(run.Status),
		FramesPlanned:   run.FramesPlanned,
		FramesAnalyzed:  run.FramesAnalyzed,
		FramesSkipped:   run.FramesSkipped,
		AverageScore:    run.AverageScore,
		Rating:          run.Rating,
		BenchmarkPassed: run.BenchmarkPassed,
		Error:           run.ErrorMessage,
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		view.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func runViews(runs []store.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	return views
}
