// Package config loads and validates the verification configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPromptTemplate is the question wrapper sent to every source.
const DefaultPromptTemplate = "Provide a legal analysis for this question. Include any relevant case citations: {{.Question}}"

// DefaultFile is read when no --config flag is given and the file exists.
const DefaultFile = "legal-consensus.yaml"

// Config is the full application configuration.
type Config struct {
	Timeout            time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxTokens          int           `yaml:"max_tokens" validate:"gt=0"`
	MaxConcurrency     int           `yaml:"max_concurrency" validate:"gte=0"`
	NormalizeCitations bool          `yaml:"normalize_citations"`
	PromptTemplate     string        `yaml:"prompt_template" validate:"required"`

	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
	Server ServerConfig `yaml:"server"`

	Sources []Source `yaml:"sources" validate:"required,min=1,unique=Name,dive"`
}

// Source is one external text-generation service.
type Source struct {
	Name      string        `yaml:"name" validate:"required"`
	Provider  string        `yaml:"provider" validate:"required,oneof=openai anthropic google"`
	Model     string        `yaml:"model" validate:"required"`
	APIKeyEnv string        `yaml:"api_key_env" validate:"required"`
	BaseURL   string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// AuditConfig selects where verification records are persisted.
type AuditConfig struct {
	Disabled    bool   `yaml:"disabled"`
	Dir         string `yaml:"dir"`
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the built-in configuration with one Anthropic, one OpenAI
// and one Google source.
func Default() *Config {
	return &Config{
		Timeout:        120 * time.Second,
		MaxTokens:      2000,
		PromptTemplate: DefaultPromptTemplate,
		Log:            LogConfig{Level: "warn", Format: "text"},
		Audit:          AuditConfig{Dir: "data"},
		Server:         ServerConfig{Addr: ":8080"},
		Sources: []Source{
			{Name: "Claude Sonnet 4.5", Provider: "anthropic", Model: "claude-sonnet-4-5-20250929", APIKeyEnv: "ANTHROPIC_API_KEY"},
			{Name: "GPT-4o", Provider: "openai", Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY"},
			{Name: "Gemini 2.0 Flash", Provider: "google", Model: "gemini-2.0-flash-exp", APIKeyEnv: "GOOGLE_API_KEY"},
		},
	}
}

// Load reads path as YAML over the defaults. Keys missing from the file
// keep their default values; a sources list in the file replaces the
// default list entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := cfg.Merge(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge decodes YAML data over c. Unknown keys are rejected.
func (c *Config) Merge(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config YAML: %w", err)
	}
	return nil
}

// ValidationError describes the first invalid field.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that the prompt template parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
				Message: fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
				Cause:   err,
			}
		}
		return &ValidationError{Message: err.Error(), Cause: err}
	}

	if _, err := template.New("prompt").Parse(c.PromptTemplate); err != nil {
		return &ValidationError{Field: "PromptTemplate", Message: err.Error(), Cause: err}
	}
	return nil
}

// SourceTimeout returns the per-source timeout, falling back to the global one.
func (c *Config) SourceTimeout(s Source) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return c.Timeout
}

// SelectSources keeps only the named sources, in configured order.
func (c *Config) SelectSources(names []string) error {
	if len(names) == 0 {
		return nil
	}
	byName := make(map[string]Source, len(c.Sources))
	for _, s := range c.Sources {
		byName[s.Name] = s
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := byName[n]; !ok {
			return fmt.Errorf("unknown source %q", n)
		}
		want[n] = true
	}
	var kept []Source
	for _, s := range c.Sources {
		if want[s.Name] {
			kept = append(kept, s)
		}
	}
	c.Sources = kept
	return nil
}

// DatabaseURLOrEnv returns the audit database URL, falling back to DATABASE_URL.
func (a AuditConfig) DatabaseURLOrEnv() string {
	if a.DatabaseURL != "" {
		return a.DatabaseURL
	}
	return os.Getenv("DATABASE_URL")
}
