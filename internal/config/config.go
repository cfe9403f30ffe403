package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the tarot reader server.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Redis  RedisConfig
	Jobs   JobsConfig
	AI     AIConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig is optional: an empty URL disables rate limiting and the
// token-usage sink.
type RedisConfig struct {
	URL string
}

type JobsConfig struct {
	Retention     time.Duration
	SweepInterval time.Duration
}

type AIConfig struct {
	Provider       string
	RequestTimeout time.Duration
	SiliconFlow    SiliconFlowConfig
}

type SiliconFlowConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

var validProviders = map[string]bool{
	"siliconflow": true,
	"mock":        true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("TAROT_PORT", 8080),
			Env:             envString("TAROT_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 60),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jobs: JobsConfig{
			Retention:     envDuration("JOB_RETENTION", time.Hour),
			SweepInterval: envDuration("JOB_SWEEP_INTERVAL", time.Minute),
		},
		AI: AIConfig{
			Provider:       os.Getenv("AI_PROVIDER"),
			RequestTimeout: envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 25*time.Second),
			SiliconFlow: SiliconFlowConfig{
				APIKey:    os.Getenv("SILICONFLOW_API_KEY"),
				BaseURL:   envString("SILICONFLOW_BASE_URL", "https://api.siliconflow.cn"),
				Model:     envString("SILICONFLOW_MODEL", "Qwen/QwQ-32B"),
				MaxTokens: envInt("AI_MAX_TOKENS", 2000),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of siliconflow, mock; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "siliconflow" {
		if c.AI.SiliconFlow.APIKey == "" {
			return fmt.Errorf("SILICONFLOW_API_KEY is required when AI_PROVIDER is siliconflow")
		}
		base := c.AI.SiliconFlow.BaseURL
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("SILICONFLOW_BASE_URL must start with http:// or https://, got %q", base)
		}
	}

	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("JOB_RETENTION must be positive, got %s", c.Jobs.Retention)
	}
	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("JOB_SWEEP_INTERVAL must be positive, got %s", c.Jobs.SweepInterval)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
