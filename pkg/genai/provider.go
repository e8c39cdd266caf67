// Package genai provides the text-generation boundary for the triage
// pipeline. Providers accept a prompt and return raw text; the pipeline never
// assumes structured output and always extracts JSON best-effort.
package genai

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the interface for text-generation providers.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string

	// Complete sends a completion request and returns the raw response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Close releases provider resources.
	Close() error
}

// Request represents a request to the generation service.
type Request struct {
	// Prompt is the full prompt text to send.
	Prompt string `json:"prompt"`

	// MaxTokens limits response length (0 = provider default).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0, 0 = provider default).
	Temperature float32 `json:"temperature,omitempty"`

	// Timeout bounds the call. Zero means the caller's context governs.
	Timeout time.Duration `json:"-"`
}

// Response represents a response from the generation service.
type Response struct {
	// Text is the raw text response.
	Text string `json:"text"`

	// Model is the actual model used (may differ from requested).
	Model string `json:"model"`

	// TokensUsed tracks token consumption when the provider reports it.
	TokensUsed TokenUsage `json:"tokens_used"`

	// LatencyMs is the response time in milliseconds.
	LatencyMs int `json:"latency_ms"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Registry manages registered generation providers.
type Registry struct {
	providers map[string]Provider
	primary   string
	fallback  string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(name string, provider Provider) {
	r.providers[name] = provider
}

// SetPrimary sets the primary provider.
func (r *Registry) SetPrimary(name string) {
	r.primary = name
}

// SetFallback sets the fallback provider.
func (r *Registry) SetFallback(name string) {
	r.fallback = name
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Registry) Primary() (Provider, bool) {
	return r.Get(r.primary)
}

// Fallback returns the fallback provider.
func (r *Registry) Fallback() (Provider, bool) {
	return r.Get(r.fallback)
}

// Resolve returns the provider callers should use: the primary alone, or
// the primary wrapped with single-retry failover when a distinct fallback
// is registered.
func (r *Registry) Resolve() (Provider, bool) {
	primary, ok := r.Primary()
	if !ok {
		return nil, false
	}
	if fallback, ok := r.Fallback(); ok && r.fallback != r.primary {
		return WithFailover(primary, fallback), true
	}
	return primary, true
}

// failover retries a failed generation call once against a second provider.
type failover struct {
	primary  Provider
	fallback Provider
}

// WithFailover wraps primary so that a failed Complete is retried once
// against fallback. Close is a no-op: the registry owns both providers.
func WithFailover(primary, fallback Provider) Provider {
	return &failover{primary: primary, fallback: fallback}
}

func (f *failover) Name() string { return f.primary.Name() }

func (f *failover) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := f.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	// A cancelled or expired context would fail against any provider.
	if ctx.Err() != nil {
		return nil, err
	}
	resp, fbErr := f.fallback.Complete(ctx, req)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %s: %v; fallback %s: %w",
			f.primary.Name(), err, f.fallback.Name(), fbErr)
	}
	return resp, nil
}

func (f *failover) Close() error { return nil }

// Close closes all registered providers.
func (r *Registry) Close() error {
	var lastErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
