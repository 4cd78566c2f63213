package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tacreview/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TACREVIEW_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	os.Unsetenv("TACREVIEW_API_KEY")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "tacreview", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "tacreview", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.LLM.APIKey != "router-key" {
		t.Fatalf("expected API key from OPENROUTER_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Frames.Count != 3 || cfg.Frames.ResizeMax != 720 || cfg.Frames.Quality != 85 {
		t.Fatalf("unexpected frame defaults: %+v", cfg.Frames)
	}
	if len(cfg.Frames.Positions) != 3 || cfg.Frames.Positions[1] != 0.5 {
		t.Fatalf("unexpected positions: %v", cfg.Frames.Positions)
	}
	if cfg.Analysis.Concurrency != 3 || cfg.Analysis.BenchmarkThreshold != 70 {
		t.Fatalf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
	if cfg.MaxFileSizeBytes() != 100*1024*1024 {
		t.Fatalf("unexpected max file size: %d", cfg.MaxFileSizeBytes())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tacreview.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Video struct {
			SupportedFormats []string `toml:"supported_formats"`
		} `toml:"video"`
		Frames struct {
			Count     int       `toml:"count"`
			Positions []float64 `toml:"positions"`
		} `toml:"frames"`
		LLM struct {
			APIKey string `toml:"api_key"`
		} `toml:"llm"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Video.SupportedFormats = []string{"MP4", ".mov", "mp4", " "}
	custom.Frames.Count = 5
	custom.Frames.Positions = []float64{0.1, 0.9}
	custom.LLM.APIKey = "  abc123 "

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.OutputDir != custom.Paths.OutputDir {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if strings.Join(cfg.Video.SupportedFormats, ",") != ".mp4,.mov" {
		t.Fatalf("unexpected formats: %v", cfg.Video.SupportedFormats)
	}
	if cfg.Frames.Count != 5 || len(cfg.Frames.Positions) != 2 {
		t.Fatalf("unexpected frames: %+v", cfg.Frames)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected trimmed api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Frames.ResizeMax != 720 {
		t.Fatalf("expected default resize max, got %d", cfg.Frames.ResizeMax)
	}
}

func TestValidateRejectsInvalidFrames(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"count", func(c *config.Config) { c.Frames.Count = 0 }, "frames.count"},
		{"resize", func(c *config.Config) { c.Frames.ResizeMax = 99 }, "frames.resize_max"},
		{"empty positions", func(c *config.Config) { c.Frames.Positions = []float64{} }, "frames.positions"},
		{"position range", func(c *config.Config) { c.Frames.Positions = []float64{0.5, 1.5} }, "frames.positions[1]"},
		{"quality", func(c *config.Config) { c.Frames.Quality = 0 }, "frames.quality"},
		{"concurrency", func(c *config.Config) { c.Analysis.Concurrency = 0 }, "analysis.concurrency"},
		{"benchmark", func(c *config.Config) { c.Analysis.BenchmarkThreshold = 101 }, "analysis.benchmark_threshold"},
		{"duration", func(c *config.Config) { c.Video.MaxDurationSeconds = 0 }, "video.max_duration_seconds"},
		{"temperature", func(c *config.Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-unit" }, "notifications.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestRequireLLM(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	err := cfg.RequireLLM()
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected missing api key error, got %v", err)
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.RequireLLM(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestImageLLMFallsBackToAnalysisModel(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.ImageModel = ""
	if got := cfg.ImageLLM().Model; got != cfg.LLM.Model {
		t.Fatalf("expected fallback to %q, got %q", cfg.LLM.Model, got)
	}
	cfg.LLM.ImageModel = "image/model"
	if got := cfg.ImageLLM().Model; got != "image/model" {
		t.Fatalf("expected image model, got %q", got)
	}
}

func TestBenchmarkPassed(t *testing.T) {
	cfg := config.Default()
	if !cfg.BenchmarkPassed(70) {
		t.Fatal("expected 70 to pass default benchmark")
	}
	if cfg.BenchmarkPassed(69.99) {
		t.Fatal("expected 69.99 to fail default benchmark")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Frames.Count != 3 {
		t.Fatalf("unexpected sample frame count: %d", cfg.Frames.Count)
	}
}
