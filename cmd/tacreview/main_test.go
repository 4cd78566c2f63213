package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tacreview/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateWarnsWithoutAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))
	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "llm.api_key is required")
}

func TestAnalyzeRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))
	video := filepath.Join(env.baseDir, "clip.mp4")
	testsupport.WriteFile(t, video, 128)

	_, _, err := runCLI(t, []string{"analyze", video}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestAnalyzeRejectsNegativeFrames(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"analyze", "--frames", "-2", "clip.mp4"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--frames") {
		t.Fatalf("expected frames error, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	notes := filepath.Join(env.baseDir, "notes.txt")
	testsupport.WriteFile(t, notes, 16)
	out, _, err := runCLI(t, []string{"validate", notes}, env.configPath)
	if err == nil {
		t.Fatal("expected validation error for unsupported format")
	}
	requireContains(t, out, "unsupported format")

	out, _, err = runCLI(t, []string{"validate", "--json", filepath.Join(env.baseDir, "missing.mp4")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var report struct {
		Valid    bool   `json:"valid"`
		Filename string `json:"filename"`
		Error    string `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(out), &report); jsonErr != nil {
		t.Fatalf("decode report: %v\n%s", jsonErr, out)
	}
	if report.Valid || report.Filename != "missing.mp4" || report.Error == "" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSummarizeCommandRebuildsReport(t *testing.T) {
	env := setupCLITestEnv(t)
	layout := seedArtifacts(t, env.cfg, "breach", 80, 90)

	out, _, err := runCLI(t, []string{"summarize", "/videos/breach.mp4"}, env.configPath)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	requireContains(t, out, "Benchmark")
	requireContains(t, out, "85.0")
	for _, path := range []string{layout.SummaryPath(), layout.ReportPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}

	out, _, err = runCLI(t, []string{"summarize", "--json", "--threshold", "90", "breach"}, env.configPath)
	if err != nil {
		t.Fatalf("summarize --json: %v", err)
	}
	var doc struct {
		VideoName string `json:"video_name"`
		Benchmark struct {
			Threshold int  `json:"threshold"`
			Passed    bool `json:"passed"`
		} `json:"benchmark"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if doc.VideoName != "breach" || doc.Benchmark.Threshold != 90 || doc.Benchmark.Passed {
		t.Fatalf("unexpected summary %+v", doc)
	}
}

func TestSummarizeUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"summarize", "never-run"}, env.configPath); err == nil {
		t.Fatal("expected error for video without saved analyses")
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	seedRun(t, env.cfg, "aaaa1111-0000-0000-0000-000000000000", "breach", 82)

	out, _, _ := runCLI(t, []string{"status", "--offline"}, env.configPath)
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "FFprobe")
	requireContains(t, out, "1 total")
	requireContains(t, out, "Completed")
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestLogsCommandFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "tacreview.log")
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "INFO frame analyzed run_id=aaaa\nINFO frame analyzed run_id=bbbb\nINFO run completed run_id=aaaa\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--run", "aaaa"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "bbbb") || strings.Count(out, "run_id=aaaa") != 2 {
		t.Fatalf("unexpected logs output:\n%s", out)
	}
}
