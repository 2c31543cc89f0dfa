// Package provider wraps the external text-generation services queried for
// each question. Providers receive their credentials explicitly; nothing in
// this package reads process-wide state.
package provider

import (
	"context"
	"fmt"
	"time"
)

// StreamCallback receives answer text as it arrives.
type StreamCallback func(chunk string)

// Provider is one external service that answers a research question.
// Implementations must honor ctx cancellation.
type Provider interface {
	Query(ctx context.Context, req Request) (Response, error)

	// QueryStream behaves like Query but also hands each text fragment
	// to callback. The returned Response holds the full answer.
	QueryStream(ctx context.Context, req Request, callback StreamCallback) (Response, error)
}

// Request is a single-turn prompt for one model.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// Response is a complete answer. Model is the model the service reports, if any.
type Response struct {
	Model    string        `json:"model"`
	Content  string        `json:"content"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency_ns"`
}

// APIError is a non-success HTTP answer from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// ProviderFunc adapts a plain function to Provider. Its QueryStream delivers
// the whole answer as a single chunk.
type ProviderFunc func(ctx context.Context, req Request) (Response, error)

func (f ProviderFunc) Query(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

func (f ProviderFunc) QueryStream(ctx context.Context, req Request, callback StreamCallback) (Response, error) {
	resp, err := f(ctx, req)
	if err != nil {
		return resp, err
	}
	if callback != nil {
		callback(resp.Content)
	}
	return resp, nil
}

const defaultMaxTokens = 2000

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
