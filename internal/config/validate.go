package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The LLM API key is not required
// here so offline commands (summarize, validate, probe) work without one; the
// analyze command checks it through RequireLLM.
func (c *Config) Validate() error {
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.validateNotifications()
}

// RequireLLM reports a configuration error when no API key is available.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set TACREVIEW_API_KEY or OPENROUTER_API_KEY, or edit %s (create with 'tacreview config init')", defaultPath)
}

func (c *Config) validateVideo() error {
	return ensurePositiveMap(map[string]int{
		"video.max_duration_seconds": c.Video.MaxDurationSeconds,
		"video.max_file_size_mb":     c.Video.MaxFileSizeMB,
	})
}

func (c *Config) validateFrames() error {
	if c.Frames.Count < 1 {
		return errors.New("frames.count must be at least 1")
	}
	if len(c.Frames.Positions) == 0 {
		return errors.New("frames.positions must include at least one position")
	}
	for i, p := range c.Frames.Positions {
		if p < 0 || p > 1 {
			return fmt.Errorf("frames.positions[%d] must be between 0 and 1, got %g", i, p)
		}
	}
	if c.Frames.ResizeMax < 100 {
		return errors.New("frames.resize_max must be at least 100")
	}
	if c.Frames.Quality < 1 || c.Frames.Quality > 100 {
		return errors.New("frames.quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.Concurrency < 1 {
		return errors.New("analysis.concurrency must be at least 1")
	}
	if c.Analysis.RetryAttempts < 1 {
		return errors.New("analysis.retry_attempts must be at least 1")
	}
	if c.Analysis.BenchmarkThreshold < 0 || c.Analysis.BenchmarkThreshold > 100 {
		return errors.New("analysis.benchmark_threshold must be between 0 and 100")
	}
	if c.Analysis.BreakerFailureThreshold < 1 {
		return errors.New("analysis.breaker_failure_threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
