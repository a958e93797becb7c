package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/celltutor/internal/metrics"
	"github.com/abhisek/celltutor/internal/store"
)

// EventRecorder persists LLM request events. store.EventRepo satisfies it.
type EventRecorder interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider records every call as an LLM request event, a metric
// sample, and a debug log line.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder EventRecorder
	logger   *slog.Logger
}

// WithLogging wraps p. A nil recorder skips event persistence only.
func WithLogging(p Provider, recorder EventRecorder) Provider {
	return &LoggingProvider{
		inner:    p,
		provider: providerName(p),
		recorder: recorder,
		logger:   slog.Default().With("component", "llm"),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.ResponseBody = string(resp.Content)
		if resp.Model != "" {
			data.Model = resp.Model
		}
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	metrics.ObserveLLMRequest(data.Purpose, data.Model, data.Success, latency, data.InputTokens, data.OutputTokens)

	attrs := []any{"purpose", data.Purpose, "model", data.Model, "latency_ms", data.LatencyMs}
	if cell := CellFrom(ctx); cell != "" {
		attrs = append(attrs, "cell_id", cell)
	}
	if err != nil {
		l.logger.Warn("llm request failed", append(attrs, "error", err)...)
	} else {
		l.logger.Debug("llm request", append(attrs, "input_tokens", data.InputTokens, "output_tokens", data.OutputTokens)...)
	}

	if l.recorder != nil {
		if recErr := l.recorder.AppendLLMRequest(context.WithoutCancel(ctx), data); recErr != nil {
			l.logger.Warn("record llm request event", "error", recErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func providerName(p Provider) string {
	switch p.(type) {
	case *AnthropicProvider:
		return "anthropic"
	case *OpenRouterProvider:
		return "openrouter"
	case *OpenAIProvider:
		return "openai"
	case *GeminiProvider:
		return "gemini"
	case *OfflineProvider:
		return "offline"
	case *MockProvider:
		return "mock"
	}
	return p.ModelID()
}

// transcript renders a request the way it reads in `celltutor llm view`.
func transcript(req Request) string {
	var b strings.Builder
	if system := systemPrompt(req); system != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", system)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
