package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tacreview/internal/analysis"
	"tacreview/internal/artifacts"
	"tacreview/internal/config"
	"tacreview/internal/sampler"
	"tacreview/internal/store"
	"tacreview/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TACREVIEW_API_KEY", "")

	configPath := filepath.Join(base, "tacreview.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[llm]\napi_key = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.LLM.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

// seedRun records a completed run with one analyzed and one skipped frame.
func seedRun(t *testing.T, cfg *config.Config, id, video string, average float64) {
	t.Helper()
	ctx := context.Background()
	history := testsupport.MustOpenStore(t, cfg)

	if _, err := history.StartRun(ctx, store.Run{
		ID:            id,
		VideoName:     video,
		VideoPath:     "/videos/" + video + ".mp4",
		Model:         "test-model",
		FramesPlanned: 2,
		StartedAt:     time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	score := int(average)
	if err := history.RecordFrame(ctx, id, store.FrameResult{FrameIndex: 0, SourceFrame: 10, TimestampSeconds: 1.5, Outcome: store.OutcomeAnalyzed, Score: &score, Formation: "wedge"}); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	if err := history.RecordFrame(ctx, id, store.FrameResult{FrameIndex: 1, SourceFrame: 20, TimestampSeconds: 3, Outcome: store.OutcomeSkipped, ErrorMessage: "vision timeout"}); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	if err := history.CompleteRun(ctx, id, store.Completion{
		AverageScore:    average,
		Rating:          analysis.Rating(average),
		BenchmarkPassed: average >= 70,
		SummaryJSON:     []byte(`{"video_name":"` + video + `"}`),
	}); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}
}

// seedArtifacts writes the metadata and analyses a finished analyze run leaves.
func seedArtifacts(t *testing.T, cfg *config.Config, video string, scores ...int) artifacts.Layout {
	t.Helper()
	layout := artifacts.NewLayout(cfg.Paths.OutputDir, video)
	dir, err := artifacts.Open(layout, cfg.Frames.Quality, nil)
	if err != nil {
		t.Fatalf("artifacts.Open: %v", err)
	}
	defer dir.Close()

	meta := artifacts.Metadata{
		RunID:     "run-" + video,
		CreatedAt: time.Now().UTC(),
		Model:     "test-model",
		Video:     sampler.NewVideoMetadata("/videos/"+video+".mp4", 30, 900, 1280, 720),
	}
	for i := range scores {
		meta.Plan.Samples = append(meta.Plan.Samples, sampler.Sample{
			Order:            i,
			FrameIndex:       i * 225,
			TimestampSeconds: float64(i) * 7.5,
		})
	}
	if _, err := dir.WriteMetadata(meta); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	for i, score := range scores {
		if _, err := dir.WriteAnalysis(analysis.FrameAnalysis{
			FrameIndex:        i,
			SourceFrame:       i * 225,
			TimestampSeconds:  float64(i) * 7.5,
			Score:             score,
			SoldierCount:      4,
			CoverSummary:      analysis.CoverSummary{FullCover: 2, PartialCover: 2},
			Movement:          analysis.Movement{Formation: "line", Spacing: "good"},
			TacticalErrors:    []string{"Bunched up at the doorway"},
			TacticalStrengths: []string{"Good use of cover"},
		}); err != nil {
			t.Fatalf("WriteAnalysis: %v", err)
		}
	}
	return layout
}
