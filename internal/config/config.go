package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Omnishop visualization server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	ImageGen ImageGenConfig
	Render   RenderConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	RequestsPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ImageGenConfig selects and configures the image-generation provider.
type ImageGenConfig struct {
	Provider string
	Google   GoogleConfig
}

type GoogleConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// RenderConfig bounds the transform-job engine: how many provider calls run
// concurrently, how long one attempt may take, how often a failed attempt is
// retried, and how long finished jobs are retained.
type RenderConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	AttemptTimeout time.Duration
	MaxConcurrent  int
	JobRetention   time.Duration
	SweepInterval  time.Duration
}

var validProviders = map[string]bool{
	"google": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("OMNISHOP_PORT", 8080),
			Env:            envString("OMNISHOP_ENV", "development"),
			RequestsPerMin: envInt("OMNISHOP_REQUESTS_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		ImageGen: ImageGenConfig{
			Provider: os.Getenv("IMAGEGEN_PROVIDER"),
			Google: GoogleConfig{
				BaseURL: envString("GOOGLE_IMAGEGEN_BASE_URL", "https://generativelanguage.googleapis.com"),
				APIKey:  os.Getenv("GOOGLE_IMAGEGEN_API_KEY"),
				Model:   envString("GOOGLE_IMAGEGEN_MODEL", "gemini-2.5-flash-image"),
			},
		},
		Render: RenderConfig{
			MaxRetries:     envInt("RENDER_MAX_RETRIES", 3),
			RetryBaseDelay: envDuration("RENDER_RETRY_BASE_DELAY", 2*time.Second),
			AttemptTimeout: envDurationSecs("RENDER_ATTEMPT_TIMEOUT_SECS", 60*time.Second),
			MaxConcurrent:  envInt("RENDER_MAX_CONCURRENT", 8),
			JobRetention:   envDuration("RENDER_JOB_RETENTION", 24*time.Hour),
			SweepInterval:  envDuration("RENDER_SWEEP_INTERVAL", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.ImageGen.Provider == "" {
		return fmt.Errorf("IMAGEGEN_PROVIDER is required")
	}
	if !validProviders[c.ImageGen.Provider] {
		return fmt.Errorf("IMAGEGEN_PROVIDER must be one of google, mock; got %q", c.ImageGen.Provider)
	}
	if c.ImageGen.Provider == "google" && c.ImageGen.Google.APIKey == "" {
		return fmt.Errorf("GOOGLE_IMAGEGEN_API_KEY is required when IMAGEGEN_PROVIDER is google")
	}

	if c.Render.MaxRetries < 1 {
		return fmt.Errorf("RENDER_MAX_RETRIES must be at least 1, got %d", c.Render.MaxRetries)
	}
	if c.Render.MaxConcurrent < 1 {
		return fmt.Errorf("RENDER_MAX_CONCURRENT must be at least 1, got %d", c.Render.MaxConcurrent)
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
