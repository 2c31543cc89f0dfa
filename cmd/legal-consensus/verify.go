package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/johnayoung/legal-consensus/internal/audit"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/output"
	"github.com/johnayoung/legal-consensus/internal/runner"
	"github.com/johnayoung/legal-consensus/internal/ui"
	"github.com/johnayoung/legal-consensus/internal/verify"
	"github.com/spf13/cobra"
)

// exitCodeNotCorroborated is returned with --strict when consensus is not high.
const exitCodeNotCorroborated = 2

type verifyOptions struct {
	file       string
	outputPath string
	jsonOut    bool
	noSave     bool
	quiet      bool
	strict     bool
	normalize  bool
	timeout    time.Duration
	sources    []string
	dbURL      string
}

func addVerifyFlags(cmd *cobra.Command, o *verifyOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "Read the question from a file")
	f.StringVarP(&o.outputPath, "output", "o", "", "Also write the JSON result to this file")
	f.BoolVar(&o.jsonOut, "json", false, "Print the JSON result to stdout instead of the report")
	f.BoolVar(&o.noSave, "no-save", false, "Do not write the audit trail")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Suppress progress output")
	f.BoolVar(&o.strict, "strict", false, "Exit with status 2 unless consensus is HIGH")
	f.BoolVar(&o.normalize, "normalize", false, "Compare citations by case name, ignoring reporter references")
	f.DurationVar(&o.timeout, "timeout", 0, "Per-source timeout (overrides config)")
	f.StringSliceVar(&o.sources, "sources", nil, "Comma-separated source names to query (default all configured)")
	f.StringVar(&o.dbURL, "db-url", "", "PostgreSQL URL for the audit trail (defaults to DATABASE_URL)")
}

func newVerifyCmd(g *globalOptions) *cobra.Command {
	o := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify [question]",
		Short: "Ask every configured source and report citation consensus",
		Long: `Ask every configured source the question and report citation consensus.

The question is taken from the arguments, from --file, or from stdin.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, g, o, args)
		},
	}
	addVerifyFlags(cmd, o)
	return cmd
}

func runVerify(cmd *cobra.Command, g *globalOptions, o *verifyOptions, args []string) error {
	question, err := getQuestion(args, o.file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
		for i := range cfg.Sources {
			cfg.Sources[i].Timeout = 0
		}
	}
	if o.normalize {
		cfg.NormalizeCitations = true
	}
	if o.dbURL != "" {
		cfg.Audit.DatabaseURL = o.dbURL
	}
	if o.noSave {
		cfg.Audit.Disabled = true
	}
	if err := cfg.SelectSources(o.sources); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink, closeSink, err := audit.FromConfig(ctx, cfg.Audit)
	defer closeSink()
	if err != nil {
		logger.Warn("audit database unavailable", "error", err)
	}

	names := make([]string, len(cfg.Sources))
	for i, s := range cfg.Sources {
		names[i] = s.Name
	}
	showUI := isTerminal(cmd.ErrOrStderr()) && !o.quiet && !o.jsonOut
	progress := ui.NewProgress(cmd.ErrOrStderr(), names, !showUI)

	v, reg, err := verify.Build(ctx, cfg, verify.Deps{
		Logger:    logger,
		Sink:      sink,
		Callbacks: progress.Callbacks(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("closing providers", "error", err)
		}
	}()

	return present(ctx, cmd, o, v, progress, showUI, question, logger)
}

// present runs the verification and writes the report, JSON and exit code.
func present(ctx context.Context, cmd *cobra.Command, o *verifyOptions, v *verify.Verifier,
	progress *ui.Progress, showUI bool, question string, logger *slog.Logger) error {

	stderr := ui.NewPrinter(cmd.ErrOrStderr())
	if showUI {
		stderr.PrintPhase(fmt.Sprintf("Querying %d sources...", len(v.Sources())))
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	progress.Start()
	res, err := v.Verify(ctx, question)
	progress.Stop()
	if err != nil {
		return err
	}

	if o.outputPath != "" {
		if err := writeJSONFile(o.outputPath, res); err != nil {
			return err
		}
		logger.Info("result written", "path", o.outputPath)
	}

	if o.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), res)
		if showUI {
			stderr.PrintSummary(len(res.Results), res.Consensus.SucceededCount, res.Duration)
			for _, w := range res.Warnings {
				stderr.PrintError(w)
			}
		}
	}

	if o.strict && res.Consensus.Level != consensus.LevelHigh {
		return &exitError{
			code: exitCodeNotCorroborated,
			msg:  fmt.Sprintf("consensus level %s: citations not corroborated", res.Consensus.Level.Display()),
		}
	}
	return nil
}

func printReport(w io.Writer, res *output.Result) {
	p := ui.NewPrinter(w)
	p.PrintHeader(res.Question)
	p.PrintReport(res)
	if res.Audited {
		p.PrintAudit(res)
	}
}

func writeJSONFile(path string, res *output.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// getQuestion reads the question from, in order: positional arguments,
// the --file flag, or stdin when it is not a terminal.
func getQuestion(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading question file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if f, ok := stdin.(*os.File); ok && ui.IsTerminal(f) {
		return "", fmt.Errorf("no question provided: use a positional argument, --file, or pipe to stdin")
	}

	scanner := bufio.NewScanner(stdin)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	question := strings.TrimSpace(strings.Join(lines, "\n"))
	if question == "" {
		return "", fmt.Errorf("no question provided: use a positional argument, --file, or pipe to stdin")
	}
	return question, nil
}

// sourceNames lists the names of sources in order.
func sourceNames(sources []runner.Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}
