package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/johnayoung/legal-consensus/internal/audit"
	"github.com/johnayoung/legal-consensus/internal/citation"
	"github.com/johnayoung/legal-consensus/internal/config"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/logging"
	"github.com/johnayoung/legal-consensus/internal/metrics"
	"github.com/johnayoung/legal-consensus/internal/provider"
	"github.com/johnayoung/legal-consensus/internal/runner"
)

// Deps are the process-level collaborators handed to Build.
type Deps struct {
	// Getenv resolves API key variables. Defaults to os.Getenv.
	Getenv    func(string) string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Sink      audit.Sink
	Callbacks runner.Callbacks
}

// Build constructs a provider registry and a Verifier from cfg. A source
// that cannot be constructed (missing key, bad endpoint) is registered as
// unavailable so it shows up as a failed result instead of aborting startup.
// The caller must Close the registry.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*Verifier, *provider.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	getenv := deps.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	reg := provider.NewRegistry()
	sources := make([]runner.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		key := getenv(s.APIKeyEnv)
		logger.Debug("configuring source",
			"source", s.Name,
			"provider", s.Provider,
			"model", s.Model,
			"api_key_present", key != "",
		)

		p, err := newProvider(ctx, s, key)
		if err != nil {
			logger.Warn("source unavailable", "source", s.Name, "error", err)
			p = provider.Unavailable(err)
		}
		reg.Register(s.Name, p)
		sources = append(sources, runner.Source{
			Name:    s.Name,
			Model:   s.Model,
			Timeout: cfg.SourceTimeout(s),
		})
	}

	r := runner.New(reg, cfg.Timeout,
		runner.WithMaxTokens(cfg.MaxTokens),
		runner.WithConcurrency(cfg.MaxConcurrency),
		runner.WithCallbacks(deps.Callbacks),
		runner.WithMetrics(deps.Metrics),
		runner.WithLogger(logger),
	)

	var extractor citation.Extractor
	if cfg.NormalizeCitations {
		extractor = citation.NormalizingExtractor{Base: citation.Default()}
	}

	v := New(r, Options{
		Sources:        sources,
		PromptTemplate: cfg.PromptTemplate,
		Analyzer:       consensus.NewAnalyzer(extractor),
		Sink:           deps.Sink,
		Metrics:        deps.Metrics,
		Logger:         logger,
	})
	return v, reg, nil
}

func newProvider(ctx context.Context, s config.Source, key string) (provider.Provider, error) {
	if key == "" {
		return nil, fmt.Errorf("%s is not set", s.APIKeyEnv)
	}
	return provider.New(ctx, provider.Settings{
		Kind:    provider.Kind(s.Provider),
		APIKey:  key,
		BaseURL: s.BaseURL,
	})
}
