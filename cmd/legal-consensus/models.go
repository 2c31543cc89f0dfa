package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/johnayoung/legal-consensus/internal/config"
	"github.com/johnayoung/legal-consensus/internal/provider"
	"github.com/spf13/cobra"
)

// ModelRecord describes one configured source.
type ModelRecord struct {
	Source        string   `json:"source"`
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	APIKeyEnv     string   `json:"api_key_env"`
	APIKeyPresent bool     `json:"api_key_present"`
	Available     []string `json:"available_models,omitempty"` // with --remote
	RemoteError   string   `json:"remote_error,omitempty"`
}

func newModelsCmd(g *globalOptions) *cobra.Command {
	var (
		remote  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured sources as JSON",
		Long: `List configured sources as JSON.

With --remote, each OpenAI-compatible source is also asked for its model
catalogue, which helps spot a misspelled or retired model name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			records := make([]ModelRecord, 0, len(cfg.Sources))
			var errs []error
			for _, s := range cfg.Sources {
				rec, err := describeSource(ctx, s, os.Getenv(s.APIKeyEnv), remote)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
				}
				records = append(records, rec)
			}

			payload, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))

			for _, err := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch each OpenAI source's model catalogue")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Timeout for remote listing")
	return cmd
}

func describeSource(ctx context.Context, s config.Source, key string, remote bool) (ModelRecord, error) {
	rec := ModelRecord{
		Source:        s.Name,
		Provider:      s.Provider,
		Model:         s.Model,
		APIKeyEnv:     s.APIKeyEnv,
		APIKeyPresent: key != "",
	}
	if !remote || provider.Kind(s.Provider) != provider.KindOpenAI {
		return rec, nil
	}
	if key == "" {
		err := errors.New(s.APIKeyEnv + " is not set")
		rec.RemoteError = err.Error()
		return rec, err
	}

	var opts []provider.OpenAIOption
	if s.BaseURL != "" {
		opts = append(opts, provider.WithOpenAIBaseURL(s.BaseURL))
	}
	p, err := provider.NewOpenAI(key, opts...)
	if err != nil {
		rec.RemoteError = err.Error()
		return rec, err
	}

	ids, err := p.ListModels(ctx)
	if err != nil {
		rec.RemoteError = err.Error()
		return rec, err
	}
	sort.Strings(ids)
	rec.Available = ids
	return rec, nil
}
