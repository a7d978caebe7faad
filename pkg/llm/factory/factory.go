// Package factory constructs completion backend clients with their
// middleware chain from configuration.
package factory

import (
	"fmt"
	"time"

	"consilium/pkg/llm"
	"consilium/pkg/llm/anthropic"
	"consilium/pkg/llm/google"
	"consilium/pkg/llm/ollama"
	"consilium/pkg/llm/openai"
	"consilium/pkg/llm/resilience"
)

// Provider identifies a completion backend implementation.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderGoogle    Provider = "google"
	ProviderMock      Provider = "mock"
)

// ParseProvider validates a provider name from configuration.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderGoogle, ProviderMock:
		return p, nil
	default:
		return "", fmt.Errorf("unknown backend provider %q", s)
	}
}

// NewClient constructs a client for the given provider with the standard
// resilience chain (per-call timeout inside classified retry). The raw SDK
// client is never handed out directly.
func NewClient(provider Provider, cfg llm.Config, callTimeout time.Duration) (llm.LLMClient, error) {
	raw, err := newRawClient(provider, cfg)
	if err != nil {
		return nil, err
	}
	return resilience.Wrap(raw, callTimeout), nil
}

func newRawClient(provider Provider, cfg llm.Config) (llm.LLMClient, error) {
	switch provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return anthropic.NewClient(cfg.APIKey, cfg.ModelName), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewClient(cfg.APIKey, cfg.ModelName), nil
	case ProviderOllama:
		return ollama.NewClient(cfg.Host, cfg.ModelName), nil
	case ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("google provider requires an API key")
		}
		return google.NewClient(cfg.APIKey, cfg.ModelName), nil
	case ProviderMock:
		return llm.NewMockClientWithContent("mock response"), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q", provider)
	}
}
