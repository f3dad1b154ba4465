// Package llm provides the summarization backends used by summaryd.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
)

// DeltaFunc receives each piece of generated text in order. Returning an
// error stops generation.
type DeltaFunc func(delta string) error

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	// Stream generates a summary of at most maxLength words, handing text to
	// onDelta as it is produced.
	Stream(ctx context.Context, text string, maxLength int, onDelta DeltaFunc) error
	// Summarize returns the whole summary at once.
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderStub   = "stub"
)

// ErrUnknownProvider is returned by Registry.Resolve for unregistered names.
var ErrUnknownProvider = errors.New("unknown llm provider")

// Registry resolves the Client for a request's provider name and credential.
type Registry struct {
	mu          sync.RWMutex
	defaultName string
	clients     map[string]Client
	model       openai.ChatModel
	log         *slog.Logger
}

// NewRegistry creates a registry whose requests without a provider use defaultName.
// model is used for OpenAI clients built from per-request credentials.
func NewRegistry(defaultName string, model openai.ChatModel, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		defaultName: defaultName,
		clients:     make(map[string]Client),
		model:       model,
		log:         log,
	}
}

// Register makes c available under name.
func (r *Registry) Register(name string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[strings.ToLower(name)] = c
}

// Resolve picks the client for provider. A non-empty apiKey for the OpenAI
// provider builds a dedicated client with that key instead of the server's.
func (r *Registry) Resolve(provider, apiKey string) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = r.defaultName
	}

	if name == ProviderOpenAI && apiKey != "" {
		c, err := NewOpenAIClient(apiKey, r.model)
		if err != nil {
			return nil, fmt.Errorf("failed to build client for request credential: %w", err)
		}
		r.log.Debug("using request-scoped OpenAI credential", "model", string(r.model))
		return c, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return c, nil
}
