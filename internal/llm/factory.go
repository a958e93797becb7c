package llm

import (
	"context"
	"fmt"
)

// NewProvider builds the provider cfg selects. Remote providers are
// wrapped as caller → timeout → retry → logging → provider, so every
// attempt is recorded and the deadline covers the retries. The offline
// provider is deterministic and local; it is logged but never retried.
func NewProvider(ctx context.Context, cfg Config, recorder EventRecorder) (Provider, error) {
	base, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, local := base.(*OfflineProvider); local {
		return WithLogging(base, recorder), nil
	}
	return WithTimeout(WithRetry(WithLogging(base, recorder), cfg.Retry), cfg.Timeout), nil
}

func newBase(ctx context.Context, cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		p, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "offline", "mock":
		return NewOfflineProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return p, nil
}
