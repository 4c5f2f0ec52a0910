package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
	"tts":        {"f5-tts"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
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
// Recoverable oddities (unknown provider names, suspicious API keys, missing
// optional sections) are logged as warnings instead of failing the load.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Series
	if cfg.Series.Name == "" {
		slog.Warn("series.name is empty; summaries and stats will use a generic series label")
	}

	// Warn on unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Provider availability
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; episode processing will not be available")
	}
	validateGroqKey(cfg.Providers.LLM)

	// Embeddings ↔ knowledge dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Knowledge.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but knowledge.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Knowledge.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("knowledge.embedding_dimensions %d must not be negative", cfg.Knowledge.EmbeddingDimensions))
	}

	// Knowledge availability
	if cfg.Knowledge.PostgresDSN == "" {
		slog.Warn("knowledge.postgres_dsn is empty; extracted knowledge will not be persisted")
	}

	// Pipeline tuning
	if cfg.Pipeline.Temperature < 0 || cfg.Pipeline.Temperature > 2 {
		errs = append(errs, fmt.Errorf("pipeline.temperature %.2f is out of range [0, 2]", cfg.Pipeline.Temperature))
	}
	if cfg.Pipeline.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_tokens %d must not be negative", cfg.Pipeline.MaxTokens))
	}
	if cfg.Pipeline.ProfileConcurrency < 0 {
		errs = append(errs, fmt.Errorf("pipeline.profile_concurrency %d must not be negative", cfg.Pipeline.ProfileConcurrency))
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
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// validateGroqKey sanity-checks the Groq credential when the LLM provider is
// groq. Groq API keys start with "gsk_"; anything else is likely a key for a
// different service pasted into the wrong field. The key itself is never
// logged.
func validateGroqKey(entry ProviderEntry) {
	if entry.Name != "groq" {
		return
	}
	key := entry.APIKey
	source := "providers.llm.api_key"
	if key == "" {
		key = os.Getenv("GROQ_API_KEY")
		source = "GROQ_API_KEY"
	}
	if key == "" {
		slog.Warn("groq LLM provider configured but no API key found in providers.llm.api_key or GROQ_API_KEY")
		return
	}
	if !strings.HasPrefix(key, "gsk_") {
		slog.Warn("groq API key does not start with gsk_, it may be a key for a different service", "source", source)
	}
}
