package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tacreview/internal/media/ffprobe"
	"tacreview/internal/pipeline"
	"tacreview/internal/sampler"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <video>",
		Short: "Check a video against the input limits without analyzing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prober := sampler.FFprobe{Binary: cfg.FFprobeBinary()}
			meta, validateErr := sampler.ValidateInput(cmd.Context(), prober, args[0], pipeline.Limits(cfg))
			report := sampler.Report(args[0], meta, validateErr)

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printValidation(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
			}
			return validateErr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation report as JSON")
	return cmd
}

func printValidation(out io.Writer, report sampler.ValidationReport, colorize bool) {
	if !report.Valid {
		fmt.Fprintln(out, renderStatusLine(report.Filename, statusError, report.Error, colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine(report.Filename, statusOK, "valid", colorize))
	rows := [][]string{
		{"Size", fmt.Sprintf("%.2f MB", report.SizeMB)},
		{"Duration", fmt.Sprintf("%.1fs", report.Duration)},
		{"FPS", fmt.Sprintf("%.2f", report.FPS)},
		{"Resolution", fmt.Sprintf("%dx%d", report.Resolution[0], report.Resolution[1])},
		{"Frames", fmt.Sprintf("%d", report.FrameCount)},
	}
	fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "probe <video>",
		Short: "Show ffprobe stream and container details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := out.Write(append(result.RawJSON(), '\n'))
				return err
			}

			fmt.Fprintf(out, "Container: %s\n", strings.TrimSpace(result.Format.FormatName))
			fmt.Fprintf(out, "Duration:  %.2fs\n", result.DurationSeconds())
			fmt.Fprintf(out, "Frames:    %d\n", result.FrameCount())
			rows := make([][]string, 0, len(result.Streams))
			for _, s := range result.Streams {
				size := ""
				if s.Width > 0 && s.Height > 0 {
					size = fmt.Sprintf("%dx%d", s.Width, s.Height)
				}
				rate := ""
				if fps := s.FrameRate(); fps > 0 {
					rate = fmt.Sprintf("%.3f", fps)
				}
				rows = append(rows, []string{fmt.Sprintf("%d", s.Index), s.CodecType, s.CodecName, size, rate})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Size", "FPS"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "Print raw ffprobe JSON")
	return cmd
}
