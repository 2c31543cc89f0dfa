package main

import (
	"os/signal"
	"syscall"

	"github.com/johnayoung/legal-consensus/internal/audit"
	"github.com/johnayoung/legal-consensus/internal/metrics"
	"github.com/johnayoung/legal-consensus/internal/server"
	"github.com/johnayoung/legal-consensus/internal/verify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification HTTP API",
		Long: `Serve the verification HTTP API.

Endpoints:
  POST /v1/verify   {"question": "..."} -> verification result
  GET  /healthz
  GET  /metrics     Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
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

			promReg := prometheus.NewRegistry()
			promReg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(promReg)

			sink, closeSink, err := audit.FromConfig(ctx, cfg.Audit)
			defer closeSink()
			if err != nil {
				logger.Warn("audit database unavailable", "error", err)
			}

			v, reg, err := verify.Build(ctx, cfg, verify.Deps{Logger: logger, Metrics: m, Sink: sink})
			if err != nil {
				return err
			}
			defer reg.Close()

			srv := server.New(server.Config{
				Addr:     cfg.Server.Addr,
				Verifier: v,
				Gatherer: promReg,
				Logger:   logger,
			})
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config, default :8080)")
	return cmd
}
