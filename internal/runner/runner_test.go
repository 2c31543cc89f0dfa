package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/provider"
)

func answer(text string) provider.Provider {
	return provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		return provider.Response{Model: req.Model, Content: text, Provider: "test"}, nil
	})
}

func fail(msg string) provider.Provider {
	return provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		return provider.Response{}, errors.New(msg)
	})
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name          string
		sources       []Source
		setup         func(*provider.Registry)
		wantSucceeded int
		wantWarnLen   int
		wantFailLen   int
	}{
		{
			name:    "all sources succeed",
			sources: []Source{{Name: "source-a"}, {Name: "source-b"}},
			setup: func(r *provider.Registry) {
				r.Register("source-a", answer("response a"))
				r.Register("source-b", answer("response b"))
			},
			wantSucceeded: 2,
		},
		{
			name:    "partial failure - one source fails",
			sources: []Source{{Name: "source-a"}, {Name: "source-b"}},
			setup: func(r *provider.Registry) {
				r.Register("source-a", fail("api error"))
				r.Register("source-b", answer("response b"))
			},
			wantSucceeded: 1,
			wantWarnLen:   1,
			wantFailLen:   1,
		},
		{
			name:    "all sources fail",
			sources: []Source{{Name: "source-a"}, {Name: "source-b"}},
			setup: func(r *provider.Registry) {
				r.Register("source-a", fail("error a"))
				r.Register("source-b", fail("error b"))
			},
			wantWarnLen: 2,
			wantFailLen: 2,
		},
		{
			name:        "unregistered source",
			sources:     []Source{{Name: "unknown-source"}},
			setup:       func(r *provider.Registry) {},
			wantWarnLen: 1,
			wantFailLen: 1,
		},
		{
			name:    "no sources",
			sources: nil,
			setup:   func(r *provider.Registry) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := provider.NewRegistry()
			tt.setup(reg)

			runner := New(reg, 5*time.Second)
			result := runner.Run(context.Background(), tt.sources, "test prompt")

			if len(result.Results) != len(tt.sources) {
				t.Fatalf("got %d results, want %d", len(result.Results), len(tt.sources))
			}

			if got := result.Succeeded(); got != tt.wantSucceeded {
				t.Errorf("got %d succeeded, want %d", got, tt.wantSucceeded)
			}

			if len(result.Warnings) != tt.wantWarnLen {
				t.Errorf("got %d warnings, want %d", len(result.Warnings), tt.wantWarnLen)
			}

			if len(result.FailedSources) != tt.wantFailLen {
				t.Errorf("got %d failed sources, want %d", len(result.FailedSources), tt.wantFailLen)
			}
		})
	}
}

func TestRunner_PreservesSourceOrder(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("slow", provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		time.Sleep(50 * time.Millisecond)
		return provider.Response{Content: "slow answer"}, nil
	}))
	reg.Register("fast", answer("fast answer"))
	reg.Register("broken", fail("quota exceeded"))

	result := New(reg, time.Second).Run(context.Background(),
		[]Source{{Name: "slow"}, {Name: "broken"}, {Name: "fast"}}, "q")

	want := []string{"slow", "broken", "fast"}
	for i, res := range result.Results {
		if res.SourceID != want[i] {
			t.Errorf("result %d: got source %q, want %q", i, res.SourceID, want[i])
		}
	}

	broken := result.Results[1]
	if broken.Succeeded {
		t.Error("expected broken source to fail")
	}
	if broken.ResponseText != "Error: quota exceeded" {
		t.Errorf("got failure text %q", broken.ResponseText)
	}
}

func TestRunner_Timeout(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("slow-source", provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		select {
		case <-ctx.Done():
			return provider.Response{}, ctx.Err()
		case <-time.After(10 * time.Second):
			return provider.Response{Content: "too slow"}, nil
		}
	}))
	reg.Register("quick-source", answer("Harlow v. Fitzgerald"))

	runner := New(reg, 100*time.Millisecond)
	result := runner.Run(context.Background(), []Source{{Name: "slow-source"}, {Name: "quick-source"}}, "test")

	if len(result.FailedSources) != 1 || result.FailedSources[0] != "slow-source" {
		t.Fatalf("expected slow-source to fail, got %v", result.FailedSources)
	}
	if !strings.Contains(result.Results[0].ResponseText, "deadline exceeded") {
		t.Errorf("expected deadline error, got %q", result.Results[0].ResponseText)
	}
	if !result.Results[1].Succeeded {
		t.Error("a slow source must not take down the others")
	}
}

func TestRunner_PerSourceTimeout(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("patient", provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		select {
		case <-ctx.Done():
			return provider.Response{}, ctx.Err()
		case <-time.After(150 * time.Millisecond):
			return provider.Response{Content: "done"}, nil
		}
	}))

	runner := New(reg, 50*time.Millisecond)
	result := runner.Run(context.Background(), []Source{{Name: "patient", Timeout: time.Second}}, "q")

	if !result.Results[0].Succeeded {
		t.Errorf("per-source timeout should override default: %s", result.Results[0].ResponseText)
	}
}

func TestRunner_RequestFields(t *testing.T) {
	var got provider.Request
	reg := provider.NewRegistry()
	reg.Register("GPT-4o", provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		got = req
		return provider.Response{Content: "ok", Provider: "openai"}, nil
	}))

	result := New(reg, time.Second, WithMaxTokens(1234)).Run(context.Background(),
		[]Source{{Name: "GPT-4o", Model: "gpt-4o"}}, "the prompt")

	if got.Model != "gpt-4o" || got.Prompt != "the prompt" || got.MaxTokens != 1234 {
		t.Errorf("unexpected request %+v", got)
	}
	res := result.Results[0]
	if res.Model != "gpt-4o" || res.Provider != "openai" {
		t.Errorf("unexpected result metadata %+v", res)
	}
}

func TestRunner_Callbacks(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("a", answer("alpha"))
	reg.Register("b", fail("nope"))

	var (
		mu        sync.Mutex
		started   []string
		chunks    []string
		completed = map[string]bool{}
	)
	cb := Callbacks{
		OnStart: func(s string) {
			mu.Lock()
			defer mu.Unlock()
			started = append(started, s)
		},
		OnChunk: func(s, c string) {
			mu.Lock()
			defer mu.Unlock()
			chunks = append(chunks, s+":"+c)
		},
		OnComplete: func(s string, r consensus.SourceResult) {
			mu.Lock()
			defer mu.Unlock()
			completed[s] = r.Succeeded
		},
	}

	New(reg, time.Second, WithCallbacks(cb)).Run(context.Background(), []Source{{Name: "a"}, {Name: "b"}}, "q")

	if len(started) != 2 {
		t.Errorf("got %d start events, want 2", len(started))
	}
	if len(chunks) != 1 || chunks[0] != "a:alpha" {
		t.Errorf("unexpected chunks %v", chunks)
	}
	if !completed["a"] || completed["b"] {
		t.Errorf("unexpected completion states %v", completed)
	}
}

func TestRunner_Concurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	reg := provider.NewRegistry()
	names := []string{"a", "b", "c", "d"}
	var sources []Source
	for _, n := range names {
		reg.Register(n, provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return provider.Response{Content: "ok"}, nil
		}))
		sources = append(sources, Source{Name: n})
	}

	New(reg, time.Second, WithConcurrency(1)).Run(context.Background(), sources, "q")

	if peak.Load() != 1 {
		t.Errorf("peak concurrency %d, want 1", peak.Load())
	}
}

func TestBuildPrompt(t *testing.T) {
	got, err := BuildPrompt("Provide a legal analysis for this question. Include any relevant case citations: {{.Question}}",
		"Is <qualified immunity> available?")
	if err != nil {
		t.Fatal(err)
	}
	want := "Provide a legal analysis for this question. Include any relevant case citations: Is <qualified immunity> available?"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := BuildPrompt("{{.Question", "q"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := BuildPrompt("{{.Missing}}", "q"); err == nil {
		t.Error("expected execution error for unknown field")
	}
}
