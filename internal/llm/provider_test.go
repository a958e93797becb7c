package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/celltutor/internal/store"
)

func TestMockProvider_ScriptedPurposeFirst(t *testing.T) {
	mock := NewMockProvider(okReply).
		Script("judge-answer", MockResponse{Content: json.RawMessage(`{"correct":true,"feedback":"Right."}`)})

	judged, err := mock.Generate(WithPurpose(context.Background(), "judge-answer"), Request{})
	if err != nil || !strings.Contains(string(judged.Content), "correct") {
		t.Fatalf("scripted reply not used: %s (%v)", judged.Content, err)
	}
	summary, err := mock.Generate(WithPurpose(context.Background(), "explain-summary"), Request{})
	if err != nil || string(summary.Content) != string(okReply.Content) {
		t.Fatalf("shared queue not used: %v", err)
	}
	if _, err := mock.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error once queue and script are empty")
	}

	want := []string{"judge-answer", "explain-summary", "unknown"}
	if strings.Join(mock.Purposes, ",") != strings.Join(want, ",") {
		t.Errorf("purposes = %v, want %v", mock.Purposes, want)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})
	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T", err)
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	if PurposeFrom(ctx) != "unknown" || CellFrom(ctx) != "" {
		t.Fatal("unlabelled context should report defaults")
	}
	ctx = WithCell(WithPurpose(ctx, "quiz-gen"), "factorial")
	if PurposeFrom(ctx) != "quiz-gen" || CellFrom(ctx) != "factorial" {
		t.Fatalf("labels lost: %q %q", PurposeFrom(ctx), CellFrom(ctx))
	}
}

func TestComplete(t *testing.T) {
	resp, err := complete(questionRequest(), "```json\n{\"prompt\":\"p\",\"kind\":\"exact\",\"answer\":\"1\"}\n```",
		Usage{InputTokens: 5, OutputTokens: 3}, "m", StopEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 8 || !strings.HasPrefix(string(resp.Content), "{") {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, err := complete(questionRequest(), `{"prompt":"p"}`, Usage{}, "m", StopEnd); err == nil {
		t.Fatal("expected schema violation")
	}

	raw, err := complete(Request{}, "  free text  ", Usage{}, "m", StopMaxTokens)
	if err != nil || string(raw.Content) != "  free text  " {
		t.Fatalf("unstructured reply should pass through: %q %v", raw.Content, err)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&ErrProviderUnavailable{}, true},
		{&ErrRateLimit{}, true},
		{&ErrInvalidResponse{Err: errors.New("x")}, true},
		{&ErrRequestRejected{Status: 400, Err: errors.New("x")}, false},
		{&ErrMaxTokensExceeded{}, false},
		{errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		if got := Transient(tt.err); got != tt.want {
			t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}}, false},
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"openrouter without key", Config{Provider: "openrouter"}, true},
		{"offline needs no key", Config{Provider: "offline"}, false},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CELLTUTOR_LLM_PROVIDER", "openai")
	t.Setenv("CELLTUTOR_OPENAI_API_KEY", "sk-env")
	t.Setenv("CELLTUTOR_OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("CELLTUTOR_LLM_TIMEOUT", "5s")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-env" || cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Fatalf("env not applied: %+v", cfg.OpenAI)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s, want 5s", cfg.Timeout)
	}
	if cfg.Anthropic.Model != "claude-haiku" {
		t.Fatalf("defaults lost: %q", cfg.Anthropic.Model)
	}
}

func TestSystemPrompt_Directives(t *testing.T) {
	if got := systemPrompt(Request{System: "You are a tutor."}); got != "You are a tutor." {
		t.Fatalf("unexpected prompt without directives: %q", got)
	}
	got := systemPrompt(Request{System: "You are a tutor.", Directives: []Directive{DirectiveSimplify, "be brief"}})
	if !strings.HasPrefix(got, "You are a tutor.") || !strings.Contains(got, "- simplify:") || !strings.Contains(got, "- be brief: be brief") {
		t.Fatalf("directives not rendered: %q", got)
	}
}

type recordingRepo struct {
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestWithLogging_RecordsEvents(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 3, OutputTokens: 2}},
		downReply,
	)
	repo := &recordingRepo{}
	p := WithLogging(mock, repo)
	ctx := WithCell(WithPurpose(context.Background(), "explain-summary"), "factorial")

	if _, err := p.Generate(ctx, Request{System: "sys", Schema: questionSchema()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error on second call")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok := repo.events[0]
	if !ok.Success || ok.Provider != "mock" || ok.Purpose != "explain-summary" || ok.InputTokens != 3 || ok.ResponseBody != `{"a":1}` {
		t.Errorf("unexpected success event: %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nsys") || !strings.Contains(ok.RequestBody, "[schema: quiz-question]") {
		t.Errorf("transcript incomplete: %q", ok.RequestBody)
	}
	if failed := repo.events[1]; failed.Success || failed.ErrorMessage == "" {
		t.Errorf("unexpected failure event: %+v", failed)
	}
}

func TestWithLogging_RecorderErrorDoesNotFailRequest(t *testing.T) {
	p := WithLogging(NewMockProvider(okReply), &recordingRepo{err: errors.New("disk full")})
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("recorder failure leaked into request: %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := providerFunc(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if _, err := WithTimeout(slow, 10*time.Millisecond).Generate(context.Background(), Request{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if _, wrapped := WithTimeout(slow, 0).(*TimeoutProvider); wrapped {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}

type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "func" }

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "offline"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, logged := p.(*LoggingProvider); !logged || p.ModelID() != "offline" {
		t.Fatalf("offline provider should be logged only, got %T", p)
	}

	cfg := DefaultConfig()
	cfg.Anthropic.APIKey = "sk-test"
	p, err = NewProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*TimeoutProvider); !ok {
		t.Fatalf("remote provider should be wrapped in a timeout, got %T", p)
	}

	if _, err := NewProvider(context.Background(), Config{Provider: "nope"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := NewProvider(context.Background(), Config{Provider: "anthropic"}, nil); err == nil {
		t.Fatal("expected error for missing key")
	}
}
