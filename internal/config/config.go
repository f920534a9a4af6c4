package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the travvy backend.
type Config struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gemini    GeminiConfig
	Auth      AuthConfig
	Worker    WorkerConfig
	Poll      PollConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port string `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_DSN" required:"true"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URI string `envconfig:"REDIS_URI" required:"true"`
}

// GeminiConfig holds Google Gemini API configuration.
type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	Model  string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-pro"`
}

// AuthConfig holds JWT and login configuration. Demo mode is an explicit,
// environment-gated test-only path; it is off unless AUTH_DEMO_MODE is set.
type AuthConfig struct {
	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTTL    time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"1h"`
	RefreshTTL   time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"720h"`
	DemoMode     bool          `envconfig:"AUTH_DEMO_MODE" default:"false"`
	DemoEmail    string        `envconfig:"AUTH_DEMO_EMAIL" default:"demo@travvy.app"`
	DemoPassword string        `envconfig:"AUTH_DEMO_PASSWORD" default:"demo123456"`
}

// WorkerConfig holds background worker configuration. MaxRetries and
// RetryBackoff bound the retry policy for transient upstream failures.
type WorkerConfig struct {
	Queue        string        `envconfig:"WORKER_QUEUE" default:"travvy:tasks"`
	Concurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	MaxRetries   int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"WORKER_RETRY_BACKOFF" default:"60s"`
	PopTimeout   time.Duration `envconfig:"WORKER_POP_TIMEOUT" default:"5s"`
}

// PollConfig holds task status polling configuration.
type PollConfig struct {
	Interval    time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	MaxAttempts int           `envconfig:"POLL_MAX_ATTEMPTS" default:"60"`
}

// CacheConfig holds read-cache TTLs.
type CacheConfig struct {
	TripTTL time.Duration `envconfig:"CACHE_TRIP_TTL" default:"5m"`
}

// RateLimitConfig holds per-client request rate limits.
type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration for logical errors beyond required fields.
func (c *Config) Validate() error {
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker max retries must not be negative, got %d", c.Worker.MaxRetries)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	return nil
}
