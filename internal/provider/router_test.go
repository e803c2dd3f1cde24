package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// stubProvider returns a canned response or error.
type stubProvider struct {
	id      string
	content string
	err     error
}

func (s *stubProvider) ID() string   { return s.id }
func (s *stubProvider) Name() string { return s.id }
func (s *stubProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{Content: s.content}, nil
}
func (s *stubProvider) HealthCheck(ctx context.Context) error { return s.err }

func TestRouterGenerate(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "a", content: "  hello  "})

	got, err := r.Generate(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello" {
		t.Errorf("Generate = %q, want %q", got, "hello")
	}
}

func TestRouterEmptyCompletionIsError(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "a", content: "   "})
	if _, err := r.Generate(context.Background(), "x"); err == nil {
		t.Error("expected error on empty completion")
	}
}

func TestRouterFallbackChain(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "primary", err: fmt.Errorf("down")})
	r.Register(&stubProvider{id: "backup", content: "ok"})
	r.SetDefault("primary")
	r.SetFallbacks([]string{"backup"})

	got, err := r.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "ok" {
		t.Errorf("Generate = %q, want ok", got)
	}
}

func TestRouterNoProviders(t *testing.T) {
	r := NewRouter(zap.NewNop())
	if _, err := r.Generate(context.Background(), "x"); err == nil {
		t.Error("expected error with no providers")
	}
}

func TestOpenAIProviderChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		json.NewEncoder(w).Encode(openAIChatResponse{
			ID:    "resp-1",
			Model: req.Model,
			Choices: []openAIChoice{
				{Message: Message{Role: "assistant", Content: "Acquire milk from store"}, FinishReason: "stop"},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{ID: "test", Endpoint: srv.URL, Model: "test-model"}, zap.NewNop())
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "goal?"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Acquire milk from store" {
		t.Errorf("Content = %q", resp.Content)
	}
}
