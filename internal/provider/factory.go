package provider

import (
	"context"
	"fmt"
)

// Kind identifies which vendor API a source talks to.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
)

// Settings is everything needed to construct one provider.
type Settings struct {
	Kind    Kind
	APIKey  string
	BaseURL string
}

// New constructs the provider described by s.
func New(ctx context.Context, s Settings) (Provider, error) {
	switch s.Kind {
	case KindOpenAI:
		var opts []OpenAIOption
		if s.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(s.BaseURL))
		}
		return NewOpenAI(s.APIKey, opts...)
	case KindAnthropic:
		var opts []AnthropicOption
		if s.BaseURL != "" {
			opts = append(opts, WithAnthropicBaseURL(s.BaseURL))
		}
		return NewAnthropic(s.APIKey, opts...)
	case KindGoogle:
		var opts []GoogleOption
		if s.BaseURL != "" {
			opts = append(opts, WithGoogleEndpoint(s.BaseURL))
		}
		return NewGoogle(ctx, s.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", s.Kind)
	}
}

// Unavailable returns a provider whose every call fails with err. It lets a
// misconfigured source degrade into a failed result instead of aborting
// the whole verification.
func Unavailable(err error) Provider {
	return ProviderFunc(func(context.Context, Request) (Response, error) {
		return Response{}, err
	})
}
