package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tacreview/internal/config"
	"tacreview/internal/logging"
	"tacreview/internal/pipeline"
	"tacreview/internal/preflight"
)

type analyzeOptions struct {
	jsonOutput  bool
	frames      int
	noAnnotate  bool
	infographic bool
	outputDir   string
	skipChecks  bool
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Sample frames, score them, and write the summary and report",
		Long: `Analyze extracts frames from a video, scores each frame with the vision
model, and writes frames, annotated frames, per-frame analysis, summary.json,
and report.txt under the output directory.

A frame whose analysis fails after retries is skipped and left out of the
summary. The command fails only when the input is rejected or no frame could
be analyzed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}
			if !opts.skipChecks {
				if err := preflightError(preflight.Failed(preflight.RunLocal(cfg))); err != nil {
					return err
				}
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			history, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run will not appear in tacreview history"),
					logging.String(logging.FieldErrorHint, "check paths.state_dir is writable"),
				)
				history = nil
			} else {
				defer history.Close()
			}

			p, err := pipeline.New(cfg, pipeline.Wire(cfg, history, logger), logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := p.Run(runCtx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, res.Document)
			}
			printRunResult(cmd.OutOrStdout(), res, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the summary document as JSON instead of the text report")
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", 0, "Number of frames to sample (overrides frames.count)")
	cmd.Flags().BoolVar(&opts.noAnnotate, "no-annotate", false, "Skip the annotation request and draw the base overlay only")
	cmd.Flags().BoolVar(&opts.infographic, "infographic", false, "Request a summary infographic from the image model")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().BoolVar(&opts.skipChecks, "skip-checks", false, "Skip local preflight checks")
	return cmd
}

func (o analyzeOptions) apply(cfg *config.Config) error {
	if o.frames < 0 {
		return fmt.Errorf("--frames must be positive, got %d", o.frames)
	}
	if o.frames > 0 {
		cfg.Frames.Count = o.frames
	}
	if o.noAnnotate {
		cfg.Analysis.Annotate = false
	}
	if o.infographic {
		cfg.Analysis.Infographic = true
	}
	if dir := strings.TrimSpace(o.outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		if err := os.MkdirAll(expanded, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", expanded, err)
		}
		cfg.Paths.OutputDir = expanded
	}
	return nil
}

func preflightError(failed []preflight.Result) error {
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed: %s (run 'tacreview status' for details)", strings.Join(parts, "; "))
}

func printRunResult(out io.Writer, res *pipeline.Result, colorize bool) {
	fmt.Fprint(out, res.Report)
	fmt.Fprintln(out)

	verdict := fmt.Sprintf("%.1f (%s), threshold %d", res.Summary.Overall.DisplayAverage(), res.Summary.Overall.Rating, res.Summary.Benchmark.Threshold)
	fmt.Fprintln(out, renderStatusLine("Benchmark", ratingKind(res.Summary.Benchmark.Passed), verdict, colorize))
	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped frames", statusWarn, fmt.Sprintf("%d of %d", len(res.Skipped), res.Plan.Len()), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, res.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Output", statusInfo, res.Layout.Root, colorize))
	if res.Infographic != "" {
		fmt.Fprintln(out, renderStatusLine("Infographic", statusInfo, res.Infographic, colorize))
	}
}
