package config

const (
	defaultConfigPath              = "~/.config/tacreview/config.toml"
	defaultOutputDir               = "~/tacreview/output"
	defaultStateDir                = "~/.local/share/tacreview"
	defaultLogDir                  = "~/.local/share/tacreview/logs"
	defaultMaxDurationSeconds      = 120
	defaultMaxFileSizeMB           = 100
	defaultFrameCount              = 3
	defaultResizeMax               = 720
	defaultQuality                 = 85
	defaultConcurrency             = 3
	defaultRetryAttempts           = 3
	defaultBenchmarkThreshold      = 70
	defaultBreakerFailureThreshold = 5
	annotationTemperature          = 0.4
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-2.5-flash"
	defaultLLMImageModel           = "google/gemini-2.5-flash-image-preview"
	defaultLLMReferer              = "https://github.com/tacreview/tacreview"
	defaultLLMTitle                = "tacreview"
	defaultLLMTimeoutSeconds       = 120
	defaultLLMTemperature          = 0.7
	defaultLLMMaxTokens            = 2048
	defaultNtfyTimeoutSeconds      = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

func defaultSupportedFormats() []string {
	return []string{".mp4", ".mov", ".avi", ".mkv", ".wmv"}
}

func defaultPositions() []float64 {
	return []float64{0.25, 0.50, 0.75}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Video: Video{
			SupportedFormats:   defaultSupportedFormats(),
			MaxDurationSeconds: defaultMaxDurationSeconds,
			MaxFileSizeMB:      defaultMaxFileSizeMB,
		},
		Frames: Frames{
			Count:     defaultFrameCount,
			Positions: defaultPositions(),
			ResizeMax: defaultResizeMax,
			Quality:   defaultQuality,
		},
		Analysis: Analysis{
			Concurrency:             defaultConcurrency,
			RetryAttempts:           defaultRetryAttempts,
			BenchmarkThreshold:      defaultBenchmarkThreshold,
			BreakerFailureThreshold: defaultBreakerFailureThreshold,
			Annotate:                true,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			ImageModel:     defaultLLMImageModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
