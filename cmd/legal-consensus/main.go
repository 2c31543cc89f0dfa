// Command legal-consensus asks several text-generation services the same
// legal question and reports which case citations they agree on.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/johnayoung/legal-consensus/internal/config"
	"github.com/johnayoung/legal-consensus/internal/logging"
	"github.com/johnayoung/legal-consensus/internal/ui"
	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	vo := &verifyOptions{}

	root := &cobra.Command{
		Use:   "legal-consensus [question]",
		Short: "Cross-check legal citations across multiple language models",
		Long: `legal-consensus sends one legal research question to several text-generation
services, extracts the case citations ("X v. Y") from every answer and reports
which citations all answering sources agree on. Citations produced by only one
source are flagged for manual verification.

Running without a subcommand is the same as "legal-consensus verify".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, g, vo, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to YAML config (default "+config.DefaultFile+" if present)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	addVerifyFlags(root, vo)

	root.AddCommand(
		newVerifyCmd(g),
		newDemoCmd(g),
		newServeCmd(g),
		newModelsCmd(g),
		newVersionCmd(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.msg)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or the default file
// when it exists, and applies the global flag overrides.
func loadConfig(g *globalOptions) (*config.Config, error) {
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: w})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsTerminal(f)
}

// getVersion returns the version string, using build info as fallback.
func getVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "legal-consensus %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
