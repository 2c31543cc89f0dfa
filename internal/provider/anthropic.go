package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com/v1"
	anthropicVersion    = "2023-06-01"
)

// Anthropic queries the Claude Messages API over plain HTTP.
type Anthropic struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// AnthropicOption configures an Anthropic provider.
type AnthropicOption func(*Anthropic)

// WithAnthropicBaseURL points the provider at another Messages endpoint.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(a *Anthropic) { a.baseURL = strings.TrimSuffix(url, "/") }
}

// WithAnthropicHTTPClient replaces the default HTTP client.
func WithAnthropicHTTPClient(c *http.Client) AnthropicOption {
	return func(a *Anthropic) { a.httpClient = c }
}

// NewAnthropic creates an Anthropic provider authenticated with apiKey.
// Deadlines come from the request context, so the default client has none.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key required")
	}
	a := &Anthropic{
		apiKey:     apiKey,
		baseURL:    anthropicDefaultURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Query returns the concatenated text blocks of one Messages call.
func (a *Anthropic) Query(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	body, err := a.post(ctx, req, false)
	if err != nil {
		return Response{}, err
	}
	defer body.Close()

	var msg messagesResponse
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return Response{}, fmt.Errorf("anthropic: decoding response: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Response{}, errors.New("anthropic: response has no text content")
	}

	return Response{
		Model:    modelOr(msg.Model, req.Model),
		Content:  text.String(),
		Provider: string(KindAnthropic),
		Latency:  time.Since(start),
	}, nil
}

// QueryStream reads the server-sent event stream, forwarding each text delta.
// An "error" event ends the stream with an error.
func (a *Anthropic) QueryStream(ctx context.Context, req Request, callback StreamCallback) (Response, error) {
	start := time.Now()

	body, err := a.post(ctx, req, true)
	if err != nil {
		return Response{}, err
	}
	defer body.Close()

	var (
		text  strings.Builder
		model string
	)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "message_start":
			model = ev.Message.Model
		case "content_block_delta":
			if ev.Delta.Type != "text_delta" {
				continue
			}
			text.WriteString(ev.Delta.Text)
			if callback != nil {
				callback(ev.Delta.Text)
			}
		case "error":
			return Response{}, fmt.Errorf("anthropic: stream error: %s: %s", ev.Error.Type, ev.Error.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("anthropic: reading stream: %w", err)
	}

	return Response{
		Model:    modelOr(model, req.Model),
		Content:  text.String(),
		Provider: string(KindAnthropic),
		Latency:  time.Since(start),
	}, nil
}

// post sends one Messages request and returns the body of a 200 answer.
func (a *Anthropic) post(ctx context.Context, req Request, stream bool) (io.ReadCloser, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     req.Model,
		MaxTokens: maxTokens(req),
		Messages:  []message{{Role: "user", Content: req.Prompt}},
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Provider: string(KindAnthropic), StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp.Body, nil
}

func modelOr(got, asked string) string {
	if got != "" {
		return got
	}
	return asked
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Message struct {
		Model string `json:"model"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
