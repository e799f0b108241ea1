package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path, expands ${ENV_VAR}
// references against the process environment, and returns a validated
// [Config].
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	cfg, err := LoadFromReader(bytes.NewReader([]byte(expanded)))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected. Useful in tests where configs are constructed
// from string literals; no environment expansion is applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.FallbackLLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Agent.RetrieveK < 0 {
		errs = append(errs, fmt.Errorf("agent.retrieve_k %d must not be negative", cfg.Agent.RetrieveK))
	}
	if cfg.Agent.ShowLimit < 0 {
		errs = append(errs, fmt.Errorf("agent.show_limit %d must not be negative", cfg.Agent.ShowLimit))
	}
	if cfg.Agent.RetrieveK > 0 && cfg.Agent.ShowLimit > cfg.Agent.RetrieveK {
		errs = append(errs, fmt.Errorf("agent.show_limit %d exceeds agent.retrieve_k %d", cfg.Agent.ShowLimit, cfg.Agent.RetrieveK))
	}
	if cfg.Agent.OracleTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent.oracle_timeout %v must not be negative", cfg.Agent.OracleTimeout))
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; record retrieval and profiles will not be available")
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Storage.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but storage.embedding_dimensions is not set; the provider's reported dimension will be used")
	}

	if cfg.Email.SMTPHost != "" {
		if cfg.Email.SMTPPort <= 0 || cfg.Email.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("email.smtp_port %d is out of range (1, 65535]", cfg.Email.SMTPPort))
		}
		if cfg.Email.Sender == "" {
			errs = append(errs, fmt.Errorf("email.sender is required when email.smtp_host is set"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
