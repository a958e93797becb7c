package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	config := openai.DefaultConfig("test-key")
	config.BaseURL = newHTTPServer(t, handler) + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(config), model: "gpt-4o-mini"}
}

// chatReply writes a chat completion whose single choice carries message.
func chatReply(message map[string]any, finish string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini-2024-07-18",
			"choices": []map[string]any{{"index": 0, "message": message, "finish_reason": finish}},
			"usage":   map[string]any{"prompt_tokens": 90, "completion_tokens": 30, "total_tokens": 120},
		})
	}
}

func chatFailure(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "error", "message": http.StatusText(status)},
		})
	}
}

func TestOpenAIProvider_StructuredReply(t *testing.T) {
	var sent struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name string `json:"name"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	reply := chatReply(map[string]any{
		"role":    "assistant",
		"content": `{"prompt":"How many times does the loop run for n=3?","kind":"exact","answer":"3"}`,
	}, "stop")
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&sent)
		reply(w, r)
	})

	resp, err := p.Generate(context.Background(), questionRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Model != "gpt-4o-mini-2024-07-18" || resp.Usage.InputTokens != 90 || resp.StopReason != StopEnd {
		t.Errorf("unexpected response metadata: %+v", resp)
	}
	if sent.ResponseFormat.Type != "json_schema" || sent.ResponseFormat.JSONSchema.Name != "quiz-question" {
		t.Fatalf("schema not sent as response format: %+v", sent.ResponseFormat)
	}
	if len(sent.Messages) != 2 || sent.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("expected system then user message, got %+v", sent.Messages)
	}
}

func TestOpenAIProvider_Refusal(t *testing.T) {
	p := newTestOpenAIProvider(t, chatReply(map[string]any{
		"role":    "assistant",
		"content": "",
		"refusal": "I can't help with that.",
	}, "stop"))

	_, err := p.Generate(context.Background(), questionRequest())
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_LengthCutoff(t *testing.T) {
	p := newTestOpenAIProvider(t, chatReply(map[string]any{
		"role":    "assistant",
		"content": `{"prompt":"How many`,
	}, "length"))

	_, err := p.Generate(context.Background(), questionRequest())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestOpenAIProvider(t, chatFailure(tt.status))
			_, err := p.Generate(context.Background(), Request{
				Messages:  []Message{{Role: RoleUser, Content: "x = 1"}},
				MaxTokens: 32,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if Transient(err) != tt.transient {
				t.Fatalf("Transient(%v) = %v, want %v", err, !tt.transient, tt.transient)
			}
		})
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-mini"}); err == nil {
		t.Fatal("expected error without API key")
	}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gpt-4o-mini" {
		t.Errorf("gpt-mini resolved to %q", p.ModelID())
	}
}

// newHTTPServer starts a test server and returns its URL.
func newHTTPServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}
