package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Endpoint  string // Ollama base URL; ignored by other providers
	APIKey    string
	Model     string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.Endpoint, cfg.Model, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. RECALL_EMBEDDING_PROVIDER (ollama, openai, local)
//  2. OPENAI_API_KEY set → openai
//  3. Default to local (offline, deterministic)
//
// Ollama is never auto-detected; it requires a running server, so it must
// be asked for explicitly.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000) // Default cache size

	if provider := os.Getenv(EnvProvider); provider != "" {
		switch strings.ToLower(provider) {
		case ProviderOllama:
			return NewOllamaProvider(os.Getenv(EnvOllamaURL), os.Getenv(EnvModel), cache), nil
		case ProviderOpenAI:
			return NewOpenAIProvider("", os.Getenv(EnvModel), cache)
		case ProviderLocal:
			return NewLocalProvider(cache), nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
		}
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("", os.Getenv(EnvModel), cache)
	}

	return NewLocalProvider(cache), nil
}

// DetectProvider returns the provider NewFromEnv would pick for the current
// environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
