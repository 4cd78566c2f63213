package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"tacreview/internal/deps"
	"tacreview/internal/preflight"
	"tacreview/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories, and model access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Configuration", colorize)
			configKind, configMsg := statusOK, ctx.configPath
			if !ctx.configExists {
				configKind, configMsg = statusWarn, ctx.configPath+" (not found, using defaults)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", configKind, configMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Vision model", statusInfo, cfg.VisionLLM().Model, colorize))
			if cfg.Analysis.Annotate || cfg.Analysis.Infographic {
				fmt.Fprintln(out, renderStatusLine("Image model", statusInfo, cfg.ImageLLM().Model, colorize))
			}
			if topic := cfg.Notifications.NtfyTopic; topic != "" {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, topic, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
			}

			printSection(out, "Dependencies", colorize)
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				if !dep.Available {
					fmt.Fprintln(out, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
					continue
				}
				detail := dep.Path
				if version := deps.Version(cmd.Context(), dep.Path); version != "" {
					detail = version
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, statusOK, detail, colorize))
			}

			printSection(out, "Checks", colorize)
			var results []preflight.Result
			if offline {
				results = preflight.RunLocal(cfg)
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			printSection(out, "History", colorize)
			printHistoryStats(cmd, out, ctx, colorize)

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip model API health checks")
	return cmd
}

func printSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printHistoryStats(cmd *cobra.Command, out io.Writer, ctx *commandContext, colorize bool) {
	history, err := ctx.openHistory()
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return
	}
	defer history.Close()

	fmt.Fprintln(out, renderStatusLine("Database", statusOK, history.Path(), colorize))
	stats, err := history.Stats(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Runs", statusError, err.Error(), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, fmt.Sprintf("%d total", stats.Total()), colorize))
	statuses := make([]store.Status, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	slices.Sort(statuses)
	for _, status := range statuses {
		fmt.Fprintln(out, renderStatusLine(formatStatus(status), runStatusKind(status), fmt.Sprintf("%d", stats[status]), colorize))
	}
}
