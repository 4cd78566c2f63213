package main

import (
	"github.com/spf13/cobra"

	"tacreview/internal/artifacts"
	"tacreview/internal/pipeline"
	"tacreview/internal/sampler"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		threshold  int
	)

	cmd := &cobra.Command{
		Use:   "summarize <video>",
		Short: "Rebuild summary.json and report.txt from saved frame analyses",
		Long: `Summarize re-aggregates the per-frame analysis files a previous analyze run
saved, without calling the vision model. The argument is the video name or its
original path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Analysis.BenchmarkThreshold
			}

			layout := artifacts.NewLayout(cfg.Paths.OutputDir, sampler.VideoName(args[0]))
			res, err := pipeline.Summarize(cmd.Context(), layout, threshold, cfg.Frames.Quality, logger)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, res.Document)
			}
			printRunResult(cmd.OutOrStdout(), res, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary document as JSON")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Benchmark pass mark (defaults to analysis.benchmark_threshold)")
	return cmd
}
