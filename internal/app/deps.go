package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"

	"smart-summary/internal/cache"
	"smart-summary/internal/client"
	"smart-summary/internal/config"
	"smart-summary/internal/llm"
	"smart-summary/internal/logger"
	"smart-summary/internal/metrics"
)

// ClientDeps bundles what a summarization session needs.
type ClientDeps struct {
	Config    config.Config
	Log       *slog.Logger
	Metrics   *metrics.Metrics
	Transport client.Transport
	Cache     cache.ResultCache
}

// ServerDeps bundles the runtime dependencies of the summaryd backend.
type ServerDeps struct {
	Config  config.Config
	Log     *slog.Logger
	Metrics *metrics.Metrics
	Store   cache.SummaryStore
	LLM     *llm.Registry
}

// BuildClient loads env and config and assembles the client side. Logs go to
// stderr so stdout stays free for output.
func BuildClient() (ClientDeps, error) {
	if err := loadEnv(); err != nil {
		return ClientDeps{}, err
	}
	cfg := config.Load()
	log := logger.NewTo(os.Stderr, cfg.LogLevel)

	transport, err := client.New(cfg.SummaryEndpoint, &http.Client{Timeout: cfg.RequestTimeout}, log)
	if err != nil {
		return ClientDeps{}, fmt.Errorf("failed to initialize client: %w", err)
	}
	results := cache.NewFIFO(cfg.CacheCapacity)
	log.Debug("summarization client ready", "endpoint", cfg.SummaryEndpoint, "cache_capacity", results.Capacity())

	return ClientDeps{
		Config:    cfg,
		Log:       log,
		Metrics:   metrics.New(),
		Transport: transport,
		Cache:     results,
	}, nil
}

// BuildServer loads env, config, and shared components for summaryd.
func BuildServer() (ServerDeps, error) {
	if err := loadEnv(); err != nil {
		return ServerDeps{}, err
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	st, err := buildStore(cfg, log)
	if err != nil {
		return ServerDeps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	registry, err := buildLLM(cfg, log)
	if err != nil {
		_ = st.Close()
		return ServerDeps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return ServerDeps{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
		Store:   st,
		LLM:     registry,
	}, nil
}

// loadEnv reads .env when present.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func buildStore(cfg config.Config, log *slog.Logger) (cache.SummaryStore, error) {
	switch cfg.StoreProvider {
	case "memory":
		log.Info("using in-memory summary store", "capacity", cfg.CacheCapacity)
		return cache.NewMemoryStore(cfg.CacheCapacity), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORE_PROVIDER=redis")
		}
		st, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		log.Info("using Redis summary store", "addr", cfg.RedisAddr, "ttl", cfg.StoreTTL.String())
		return st, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		st, err := cache.NewPostgresStore(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres summary store", "ttl", cfg.StoreTTL.String())
		return st, nil
	case "none":
		log.Info("summary store disabled")
		return cache.NewNoOpStore(), nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: memory, redis, postgres, none)", cfg.StoreProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry(cfg.LLMProvider, openai.ChatModel(cfg.LLMModel), log)
	registry.Register(llm.ProviderStub, llm.Stub{Delay: cfg.StreamDelay})

	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case llm.ProviderStub:
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, stub)", cfg.LLMProvider)
	}

	if cfg.OpenAIKey != "" {
		openaiClient, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		registry.Register(llm.ProviderOpenAI, openaiClient)
		log.Info("OpenAI LLM client registered", "model", cfg.LLMModel)
	}
	log.Info("default LLM provider", "provider", cfg.LLMProvider)
	return registry, nil
}
