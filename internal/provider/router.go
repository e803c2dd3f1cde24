package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Router holds registered providers and routes generation requests to the
// default one, walking the fallback chain when it fails.
type Router struct {
	providers map[string]Provider
	fallbacks []string
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider. The first registered provider becomes the
// default.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault selects the provider used first.
func (r *Router) SetDefault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = id
}

// SetFallbacks sets the ordered chain tried after the default fails.
func (r *Router) SetFallbacks(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = ids
}

// chain returns the default plus fallbacks as resolved providers.
func (r *Router) chain() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	if p, ok := r.providers[r.defaults]; ok {
		out = append(out, p)
	}
	for _, id := range r.fallbacks {
		if id == r.defaults {
			continue
		}
		if p, ok := r.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Chat routes a request through the provider chain, returning the first
// success.
func (r *Router) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	chain := r.chain()
	if len(chain) == 0 {
		return nil, fmt.Errorf("no providers registered")
	}
	var lastErr error
	for _, p := range chain {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn("provider failed, trying next",
			zap.String("provider", p.ID()), zap.Error(err))
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Generate is the narrow surface the engine's fallback handler and the
// generate tool consume: one prompt in, trimmed text out. An empty
// completion is reported as an error so callers never mistake silence for
// an answer.
func (r *Router) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.Chat(ctx, &ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("provider returned empty completion")
	}
	return text, nil
}
