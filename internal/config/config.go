package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the summarize CLI and the summaryd backend.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Client session
	SummaryEndpoint     string        `env:"SUMMARY_ENDPOINT" envDefault:"http://localhost:8080/summarize/stream"`
	MaxLength           int           `env:"MAX_LENGTH" envDefault:"200"`
	SummaryProvider     string        `env:"SUMMARY_PROVIDER"`
	SummaryAPIKey       string        `env:"SUMMARY_API_KEY"`
	CacheCapacity       int           `env:"CACHE_CAPACITY" envDefault:"50"`
	DebounceWindow      time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"500ms"`
	CacheNoticeDuration time.Duration `env:"CACHE_NOTICE_DURATION" envDefault:"3s"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2m"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// LLM
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"stub"` // "openai" (uses OpenAI API) or "stub" (extractive, no network)
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Summary store
	StoreProvider string        `env:"STORE_PROVIDER" envDefault:"memory"` // "memory", "redis", "postgres" or "none"
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	DBURL         string        `env:"DB_URL"`
	StoreTTL      time.Duration `env:"STORE_TTL" envDefault:"24h"`

	// Delay between words when replaying a stored summary.
	StreamDelay time.Duration `env:"STREAM_DELAY" envDefault:"20ms"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
