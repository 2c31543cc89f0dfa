package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAI Models
// Full list: https://platform.openai.com/docs/models
//
//   - gpt-4o               : Fast, intelligent, flexible GPT model
//   - gpt-4o-mini          : Fast, affordable for focused tasks
//   - gpt-4.1              : Smartest non-reasoning model
//   - o3                   : Reasoning model for complex tasks

// OpenAI implements Provider for OpenAI's chat completions API.
type OpenAI struct {
	client *openai.Client
}

// OpenAIOption configures an OpenAI provider.
type OpenAIOption func(*openai.ClientConfig)

// WithOpenAIBaseURL sets a custom base URL (useful for proxies or compatible APIs).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openai.ClientConfig) { c.BaseURL = url }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openai.ClientConfig) { c.HTTPClient = hc }
}

// NewOpenAI creates an OpenAI provider authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &OpenAI{client: openai.NewClientWithConfig(cfg)}, nil
}

// Query sends a prompt to an OpenAI model and returns the response.
func (o *OpenAI) Query(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, chatRequest(req, false))
	if err != nil {
		return Response{}, wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, errors.New("no choices in response")
	}

	return Response{
		Model:    req.Model,
		Content:  resp.Choices[0].Message.Content,
		Provider: "openai",
		Latency:  time.Since(start),
	}, nil
}

// QueryStream sends a prompt to an OpenAI model and streams the response.
func (o *OpenAI) QueryStream(ctx context.Context, req Request, callback StreamCallback) (Response, error) {
	start := time.Now()

	stream, err := o.client.CreateChatCompletionStream(ctx, chatRequest(req, true))
	if err != nil {
		return Response{}, wrapOpenAIError(err)
	}
	defer stream.Close()

	var fullContent strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Response{}, fmt.Errorf("reading stream: %w", wrapOpenAIError(err))
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		fullContent.WriteString(text)
		if callback != nil {
			callback(text)
		}
	}

	return Response{
		Model:    req.Model,
		Content:  fullContent.String(),
		Provider: "openai",
		Latency:  time.Since(start),
	}, nil
}

// ListModels returns the IDs of every model visible to the API key.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func chatRequest(req Request, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxCompletionTokens: maxTokens(req),
		Stream:              stream,
	}
}

// wrapOpenAIError maps SDK HTTP errors onto APIError so callers see one
// error shape across providers.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("sending request: %w", err)
}
