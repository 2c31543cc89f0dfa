// Package runner fans one prompt out to every configured source and joins
// the outcomes into an ordered slice of consensus.SourceResult.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/logging"
	"github.com/johnayoung/legal-consensus/internal/metrics"
	"github.com/johnayoung/legal-consensus/internal/provider"
	"golang.org/x/sync/errgroup"
)

// Source is one entry to query: the registry name, the model to request and
// an optional timeout overriding the runner default.
type Source struct {
	Name    string
	Model   string
	Timeout time.Duration
}

// Callbacks receive progress events. Any field may be nil. They are called
// from the query goroutines and must be safe for concurrent use.
type Callbacks struct {
	OnStart    func(source string)
	OnChunk    func(source, chunk string)
	OnComplete func(source string, result consensus.SourceResult)
}

// Result contains the outcomes of querying every source, in source order.
type Result struct {
	Results       []consensus.SourceResult
	Warnings      []string
	FailedSources []string
}

// Succeeded reports how many sources answered.
func (r *Result) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded {
			n++
		}
	}
	return n
}

// Runner orchestrates parallel source queries.
type Runner struct {
	registry  *provider.Registry
	timeout   time.Duration
	maxTokens int
	limit     int
	callbacks Callbacks
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCallbacks installs progress callbacks. When OnChunk is set, sources
// are queried in streaming mode.
func WithCallbacks(cb Callbacks) Option {
	return func(r *Runner) { r.callbacks = cb }
}

// WithMaxTokens sets the completion budget sent with every request.
func WithMaxTokens(n int) Option {
	return func(r *Runner) { r.maxTokens = n }
}

// WithConcurrency caps the number of in-flight queries. Zero means unlimited.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.limit = n }
}

// WithMetrics records per-source counters and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner with the given registry and default per-source timeout.
func New(registry *provider.Registry, timeout time.Duration, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		timeout:  timeout,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run queries all sources concurrently and waits for every one of them.
// Partial or total failure never aborts the run: each failure becomes a
// failed SourceResult in its slot. Sources do not cancel one another; only
// ctx and the per-source timeout bound a query.
func (r *Runner) Run(ctx context.Context, sources []Source, prompt string) *Result {
	results := make([]consensus.SourceResult, len(sources))

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for i, src := range sources {
		g.Go(func() error {
			results[i] = r.query(ctx, src, prompt)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := &Result{Results: results}
	for _, res := range results {
		if !res.Succeeded {
			out.FailedSources = append(out.FailedSources, res.SourceID)
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", res.SourceID, res.ResponseText))
		}
	}
	return out
}

func (r *Runner) query(ctx context.Context, src Source, prompt string) consensus.SourceResult {
	timeout := r.timeout
	if src.Timeout > 0 {
		timeout = src.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.callbacks.OnStart != nil {
		r.callbacks.OnStart(src.Name)
	}

	start := time.Now()
	resp, err := r.call(ctx, src, prompt)
	elapsed := time.Since(start)

	var res consensus.SourceResult
	if err != nil {
		res = consensus.Failure(src.Name, err)
		r.logger.Warn("source query failed", "source", src.Name, "model", src.Model, "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		res = consensus.Success(src.Name, resp.Content)
		res.Provider = resp.Provider
		r.logger.Debug("source query succeeded", "source", src.Name, "model", src.Model, "duration_ms", elapsed.Milliseconds())
	}
	res.Model = src.Model
	res.Latency = elapsed

	r.metrics.ObserveSource(src.Name, res.Succeeded, elapsed)
	if r.callbacks.OnComplete != nil {
		r.callbacks.OnComplete(src.Name, res)
	}
	return res
}

func (r *Runner) call(ctx context.Context, src Source, prompt string) (provider.Response, error) {
	p, err := r.registry.Get(src.Name)
	if err != nil {
		return provider.Response{}, err
	}

	req := provider.Request{Model: src.Model, Prompt: prompt, MaxTokens: r.maxTokens}
	if r.callbacks.OnChunk == nil {
		return p.Query(ctx, req)
	}
	return p.QueryStream(ctx, req, func(chunk string) {
		r.callbacks.OnChunk(src.Name, chunk)
	})
}

// BuildPrompt renders tmpl with the question as {{.Question}}.
func BuildPrompt(tmpl, question string) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Question string }{question}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
