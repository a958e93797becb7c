package llm

import (
	"fmt"
	"net/http"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// openRouterTitle identifies the app on the OpenRouter dashboard.
	openRouterTitle = "celltutor"
)

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API. Model
// IDs are vendor-prefixed ("anthropic/claude-haiku-4.5") and pass through
// unchanged.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openrouter model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	client := &http.Client{Transport: attributionTransport{base: http.DefaultTransport}}

	inner, err := newOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: baseURL}, client)
	if err != nil {
		return nil, err
	}
	inner.model = cfg.Model
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

// attributionTransport adds OpenRouter's optional app attribution header.
type attributionTransport struct {
	base http.RoundTripper
}

func (t attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Title", openRouterTitle)
	return t.base.RoundTrip(r)
}
