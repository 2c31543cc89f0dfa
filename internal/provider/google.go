package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Google Gemini Models
// Full list: https://ai.google.dev/gemini-api/docs/models
//
//   - gemini-2.0-flash     : Fast multimodal model
//   - gemini-2.5-flash     : Price-performance model with thinking
//   - gemini-2.5-pro       : Most capable reasoning model

// Google implements Provider for the Gemini API.
type Google struct {
	client *genai.Client
}

// GoogleOption configures a Google provider.
type GoogleOption func(*[]option.ClientOption)

// WithGoogleEndpoint sets a custom API endpoint.
func WithGoogleEndpoint(url string) GoogleOption {
	return func(o *[]option.ClientOption) { *o = append(*o, option.WithEndpoint(url)) }
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(o *[]option.ClientOption) { *o = append(*o, option.WithHTTPClient(c)) }
}

// NewGoogle creates a Gemini provider authenticated with apiKey.
func NewGoogle(ctx context.Context, apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("Google API key required")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &Google{client: client}, nil
}

// Query sends a prompt to a Gemini model and returns the response.
func (g *Google) Query(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	resp, err := g.model(req).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return Response{}, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Model:    req.Model,
		Content:  text,
		Provider: "google",
		Latency:  time.Since(start),
	}, nil
}

// QueryStream sends a prompt to a Gemini model and streams the response.
func (g *Google) QueryStream(ctx context.Context, req Request, callback StreamCallback) (Response, error) {
	start := time.Now()

	iter := g.model(req).GenerateContentStream(ctx, genai.Text(req.Prompt))

	var fullContent strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return Response{}, fmt.Errorf("reading stream: %w", err)
		}
		chunk := candidateText(resp)
		if chunk == "" {
			continue
		}
		fullContent.WriteString(chunk)
		if callback != nil {
			callback(chunk)
		}
	}

	if fullContent.Len() == 0 {
		return Response{}, errors.New("no content in response")
	}

	return Response{
		Model:    req.Model,
		Content:  fullContent.String(),
		Provider: "google",
		Latency:  time.Since(start),
	}, nil
}

// Close releases the underlying client connection.
func (g *Google) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Google) model(req Request) *genai.GenerativeModel {
	m := g.client.GenerativeModel(req.Model)
	m.SetMaxOutputTokens(int32(maxTokens(req)))
	return m
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	text := candidateText(resp)
	if text == "" {
		return "", errors.New("no content in response")
	}
	return text, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
