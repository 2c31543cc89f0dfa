// Package verify runs one end-to-end verification: it queries every source,
// analyzes the answers for shared citations, and records the outcome.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/johnayoung/legal-consensus/internal/audit"
	"github.com/johnayoung/legal-consensus/internal/config"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/logging"
	"github.com/johnayoung/legal-consensus/internal/metrics"
	"github.com/johnayoung/legal-consensus/internal/output"
	"github.com/johnayoung/legal-consensus/internal/runner"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Verifier ties the runner, analyzer and audit sink together.
type Verifier struct {
	runner   *runner.Runner
	analyzer *consensus.Analyzer
	sources  []runner.Source
	template string
	sink     audit.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Options configures a Verifier. Zero values pick sensible defaults.
type Options struct {
	Sources        []runner.Source
	PromptTemplate string
	Analyzer       *consensus.Analyzer
	Sink           audit.Sink
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// New creates a verifier that queries opts.Sources through r.
func New(r *runner.Runner, opts Options) *Verifier {
	v := &Verifier{
		runner:   r,
		analyzer: opts.Analyzer,
		sources:  opts.Sources,
		template: opts.PromptTemplate,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if v.analyzer == nil {
		v.analyzer = consensus.NewAnalyzer(nil)
	}
	if v.template == "" {
		v.template = config.DefaultPromptTemplate
	}
	if v.sink == nil {
		v.sink = audit.Discard{}
	}
	if v.logger == nil {
		v.logger = logging.Discard()
	}
	return v
}

// Sources returns the names of the sources queried, in order.
func (v *Verifier) Sources() []string {
	names := make([]string, len(v.sources))
	for i, s := range v.sources {
		names[i] = s.Name
	}
	return names
}

// Verify asks every source the question and returns the analyzed result.
// Source failures and audit failures are reported inside the result; only
// an empty question or an unusable prompt template is an error.
func (v *Verifier) Verify(ctx context.Context, question string) (*output.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	prompt, err := runner.BuildPrompt(v.template, question)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	run := v.runner.Run(ctx, v.sources, prompt)
	report := v.analyzer.Analyze(run.Results)

	res := output.New(question, prompt, run.Results, report)
	res.Duration = time.Since(start)
	res.Warnings = append(res.Warnings, run.Warnings...)

	v.metrics.ObserveVerification(string(report.Level), report.Shared.Len())
	v.logger.Info("verification complete",
		"id", res.ID,
		"consensus_level", report.Level,
		"succeeded", report.SucceededCount,
		"sources", len(run.Results),
		"shared", report.Shared.Len(),
		"duration_ms", res.Duration.Milliseconds(),
	)

	v.save(ctx, res)
	return res, nil
}

func (v *Verifier) save(ctx context.Context, res *output.Result) {
	if _, ok := v.sink.(audit.Discard); ok {
		return
	}

	err := v.sink.Save(ctx, res)
	if err == nil {
		res.Audited = true
		return
	}

	failed := failedSinks(err, v.sink.Name())
	for _, name := range failed {
		v.metrics.ObserveAuditFailure(name)
	}
	if multi, ok := v.sink.(audit.Multi); ok && len(failed) < len(multi) {
		res.Audited = true
	}

	v.logger.Error("audit save failed", "id", res.ID, "error", err)
	res.Warnings = append(res.Warnings, fmt.Sprintf("audit: %v", err))
}

// failedSinks names every sink reported in err, or fallback when err does
// not identify one.
func failedSinks(err error, fallback string) []string {
	var names []string
	var walk func(error)
	walk = func(e error) {
		if se, ok := e.(*audit.SinkError); ok {
			names = append(names, se.Sink)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var se *audit.SinkError
		if errors.As(e, &se) {
			names = append(names, se.Sink)
		}
	}
	walk(err)
	if len(names) == 0 {
		names = append(names, fallback)
	}
	return names
}
