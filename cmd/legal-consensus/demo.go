package main

import (
	"context"
	"time"

	"github.com/johnayoung/legal-consensus/internal/audit"
	"github.com/johnayoung/legal-consensus/internal/citation"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/provider"
	"github.com/johnayoung/legal-consensus/internal/runner"
	"github.com/johnayoung/legal-consensus/internal/ui"
	"github.com/johnayoung/legal-consensus/internal/verify"
	"github.com/spf13/cobra"
)

const demoQuestion = "What is the standard for qualified immunity in Section 1983 cases?"

// demoSource is a canned answer standing in for a live service.
type demoSource struct {
	name, provider, model, text string
}

var demoSources = []demoSource{
	{
		name: "Claude Sonnet 4.5", provider: "anthropic", model: "claude-sonnet-4-5-20250929",
		text: `Qualified immunity shields government officials from civil liability unless
they violated clearly established constitutional rights that a reasonable
person would have known. The modern test comes from Harlow v. Fitzgerald, 457 U.S. 800
(1982), which asks (1) whether a constitutional right was violated and (2) whether
that right was clearly established at the time of the alleged violation.
Saucier v. Katz, 533 U.S. 194 (2001) made that sequence mandatory, and
Pearson v. Callahan, 555 U.S. 223 (2009) later allowed courts to address the prongs
in either order.`,
	},
	{
		name: "GPT-4o", provider: "openai", model: "gpt-4o",
		text: `Under Section 1983, qualified immunity protects officials performing
discretionary functions unless their conduct violated clearly established
statutory or constitutional rights. The test from Harlow v. Fitzgerald, 457 U.S. 800
requires that the law be sufficiently clear that a reasonable official would
understand their conduct was unlawful; see also Anderson v. Creighton, 483 U.S. 635.
Courts may skip the constitutional violation analysis per Pearson v. Callahan, 555 U.S. 223
if no clearly established right exists.`,
	},
	{
		name: "Gemini 2.0 Flash", provider: "google", model: "gemini-2.0-flash-exp",
		text: `Qualified immunity in Section 1983 cases follows the framework from
Harlow v. Fitzgerald, 457 U.S. 800, providing immunity unless officials violate
clearly established law. The Supreme Court in Pearson v. Callahan, 555 U.S. 223
relaxed the rigid two-step sequence to allow flexible analysis. An official's
conduct must be objectively unreasonable in light of clearly established law at
the time of the action.`,
	},
}

type demoOptions struct {
	verifyOptions
	save bool
}

func newDemoCmd(g *globalOptions) *cobra.Command {
	o := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a full verification against canned answers (no API keys needed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.jsonOut, "json", false, "Print the JSON result to stdout instead of the report")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Suppress progress output")
	f.BoolVar(&o.normalize, "normalize", false, "Compare citations by case name, ignoring reporter references")
	f.BoolVar(&o.save, "save", false, "Write the audit trail to the configured directory")
	return cmd
}

func runDemo(cmd *cobra.Command, g *globalOptions, o *demoOptions) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reg := provider.NewRegistry()
	sources := make([]runner.Source, len(demoSources))
	for i, d := range demoSources {
		reg.Register(d.name, cannedProvider(d))
		sources[i] = runner.Source{Name: d.name, Model: d.model}
	}

	showUI := isTerminal(cmd.ErrOrStderr()) && !o.quiet && !o.jsonOut
	progress := ui.NewProgress(cmd.ErrOrStderr(), sourceNames(sources), !showUI)

	var sink audit.Sink = audit.Discard{}
	if o.save {
		sink = audit.NewFileSink(cfg.Audit.Dir)
	}

	var extractor citation.Extractor
	if o.normalize || cfg.NormalizeCitations {
		extractor = citation.NormalizingExtractor{Base: citation.Default()}
	}

	r := runner.New(reg, cfg.Timeout,
		runner.WithCallbacks(progress.Callbacks()),
		runner.WithLogger(logger),
	)
	v := verify.New(r, verify.Options{
		Sources:        sources,
		PromptTemplate: cfg.PromptTemplate,
		Analyzer:       consensus.NewAnalyzer(extractor),
		Sink:           sink,
		Logger:         logger,
	})

	if showUI {
		ui.NewPrinter(cmd.ErrOrStderr()).PrintWarning("DEMO MODE: canned answers, no services are contacted")
	}
	return present(ctx, cmd, &o.verifyOptions, v, progress, showUI, demoQuestion, logger)
}

func cannedProvider(d demoSource) provider.Provider {
	return provider.ProviderFunc(func(ctx context.Context, req provider.Request) (provider.Response, error) {
		select {
		case <-ctx.Done():
			return provider.Response{}, ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
		return provider.Response{Model: d.model, Content: d.text, Provider: d.provider}, nil
	})
}
