package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and state directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Video contains input acceptance thresholds enforced before extraction.
type Video struct {
	SupportedFormats   []string `toml:"supported_formats"`
	MaxDurationSeconds int      `toml:"max_duration_seconds"`
	MaxFileSizeMB      int      `toml:"max_file_size_mb"`
}

// Frames contains frame sampling settings.
type Frames struct {
	Count     int       `toml:"count"`
	Positions []float64 `toml:"positions"`
	ResizeMax int       `toml:"resize_max"`
	Quality   int       `toml:"quality"`
}

// Analysis contains per-frame analysis and aggregation settings.
type Analysis struct {
	Concurrency             int    `toml:"concurrency"`
	RetryAttempts           int    `toml:"retry_attempts"`
	BenchmarkThreshold      int    `toml:"benchmark_threshold"`
	ScenarioContext         string `toml:"scenario_context"`
	BreakerFailureThreshold int    `toml:"breaker_failure_threshold"`
	Annotate                bool   `toml:"annotate"`
	Infographic             bool   `toml:"infographic"`
}

// LLM contains vision model connection settings.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	ImageModel     string  `toml:"image_model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications configures ntfy push messages for finished runs.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-unit. Empty
	// disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for tacreview.
//
// Configuration sections by subsystem:
//   - Paths: output, state, and log directories
//   - Video: accepted containers and size/duration limits
//   - Frames: sample positions and image normalization
//   - Analysis: worker pool, retries, benchmark, and annotation
//   - LLM: vision model connection settings
//   - Logging: log format and level
//   - Metrics: optional Prometheus textfile output
//   - Notifications: optional ntfy messages when a run finishes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Video         Video         `toml:"video"`
	Frames        Frames        `toml:"frames"`
	Analysis      Analysis      `toml:"analysis"`
	LLM           LLM           `toml:"llm"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tacreview.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for metadata probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// HistoryPath returns the sqlite database holding run history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// MaxFileSizeBytes converts the configured size limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Video.MaxFileSizeMB) * 1024 * 1024
}

// BenchmarkPassed reports whether average meets the configured benchmark threshold.
func (c *Config) BenchmarkPassed(average float64) bool {
	return average >= float64(c.Analysis.BenchmarkThreshold)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the connection settings handed to the vision client.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
	MaxTokens      int
}

// VisionLLM returns the settings used for frame analysis and annotation requests.
func (c *Config) VisionLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		Temperature:    c.LLM.Temperature,
		MaxTokens:      c.LLM.MaxTokens,
	}
}

// ImageLLM returns the settings used for image generation requests.
// Falls back to the analysis model when no image model is configured.
func (c *Config) ImageLLM() LLMConfig {
	cfg := c.VisionLLM()
	if model := strings.TrimSpace(c.LLM.ImageModel); model != "" {
		cfg.Model = model
	}
	return cfg
}

// AnnotationLLM returns the settings for annotation layout requests: the
// image model at a lower temperature for steadier coordinates.
func (c *Config) AnnotationLLM() LLMConfig {
	cfg := c.ImageLLM()
	cfg.Temperature = annotationTemperature
	return cfg
}
