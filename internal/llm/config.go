package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "offline", "mock"
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout is the maximum duration for a single LLM request
	// (including retries). Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "gpt-mini"
	BaseURL string `yaml:"base_url"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "google/gemini-2.5-flash"
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "anthropic",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.5-flash",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overlays CELLTUTOR_* environment variables onto c.
func (c *Config) ApplyEnv() {
	for _, b := range c.envBindings() {
		if v := os.Getenv(b.key); v != "" {
			*b.dst = v
		}
	}
	if t := os.Getenv("CELLTUTOR_LLM_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			c.Timeout = d
		}
	}
}

type envBinding struct {
	key string
	dst *string
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"CELLTUTOR_LLM_PROVIDER", &c.Provider},
		{"CELLTUTOR_ANTHROPIC_API_KEY", &c.Anthropic.APIKey},
		{"CELLTUTOR_ANTHROPIC_MODEL", &c.Anthropic.Model},
		{"CELLTUTOR_OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"CELLTUTOR_OPENAI_MODEL", &c.OpenAI.Model},
		{"CELLTUTOR_OPENAI_BASE_URL", &c.OpenAI.BaseURL},
		{"CELLTUTOR_GEMINI_API_KEY", &c.Gemini.APIKey},
		{"CELLTUTOR_GEMINI_MODEL", &c.Gemini.Model},
		{"CELLTUTOR_OPENROUTER_API_KEY", &c.OpenRouter.APIKey},
		{"CELLTUTOR_OPENROUTER_MODEL", &c.OpenRouter.Model},
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("CELLTUTOR_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("CELLTUTOR_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("CELLTUTOR_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("CELLTUTOR_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "offline", "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
