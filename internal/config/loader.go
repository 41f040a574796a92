package config

import (
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
	"asr":        {"whisper", "whisper-native", "deepgram", "openai"},
	"correction": {"openai", "ollama", "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp"},
	"embeddings": {"openai"},
}

// Valid values for the correction enum fields. Kept here rather than on the
// provider types because only the YAML layer needs to reject free-form input.
var (
	validTargetLanguages = []string{"keep_source", "english", "chinese_simplified"}
	validRewrite         = []string{"off", "light", "medium", "strong"}
	validOutputStyles    = []string{"off", "concise_paragraphs", "bullet_list", "action_items"}
)

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
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("asr", cfg.Providers.ASR.Name)
	for _, fb := range cfg.Providers.ASRFallbacks {
		validateProviderName("asr", fb.Name)
	}
	validateProviderName("correction", cfg.Providers.Correction.Name)
	for _, fb := range cfg.Providers.CorrectionFallbacks {
		validateProviderName("correction", fb.Name)
	}
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Provider availability warnings
	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr.name is required"))
	}
	if cfg.Dictation.Correction.Enabled && cfg.Providers.Correction.Name == "" {
		slog.Warn("dictation.correction.enabled is set but providers.correction is not configured; transcripts will be delivered uncorrected")
	}
	if len(cfg.Providers.ASRFallbacks) > 0 && cfg.Providers.ASR.Name == "" {
		slog.Warn("providers.asr_fallbacks configured without a primary ASR provider")
	}

	// Dictation timing — zero means default, negatives are always wrong.
	d := cfg.Dictation
	if d.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("dictation.debounce_ms %d must not be negative", d.DebounceMs))
	}
	if d.IdleTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("dictation.idle_timeout_ms %d must not be negative", d.IdleTimeoutMs))
	}
	if d.ErrorRevertMs < 0 {
		errs = append(errs, fmt.Errorf("dictation.error_revert_ms %d must not be negative", d.ErrorRevertMs))
	}
	if d.HeartbeatMs < 0 {
		errs = append(errs, fmt.Errorf("dictation.heartbeat_ms %d must not be negative", d.HeartbeatMs))
	}
	if d.ContextCharBudget < 0 {
		errs = append(errs, fmt.Errorf("dictation.context_char_budget %d must not be negative", d.ContextCharBudget))
	}
	if d.MaxRecent < 0 {
		errs = append(errs, fmt.Errorf("dictation.max_recent %d must not be negative", d.MaxRecent))
	}

	// Correction enums
	co := d.Correction
	if co.TargetLanguage != "" && !slices.Contains(validTargetLanguages, co.TargetLanguage) {
		errs = append(errs, fmt.Errorf("dictation.correction.target_language %q is invalid; valid values: %v", co.TargetLanguage, validTargetLanguages))
	}
	if co.Rewrite != "" && !slices.Contains(validRewrite, co.Rewrite) {
		errs = append(errs, fmt.Errorf("dictation.correction.rewrite %q is invalid; valid values: %v", co.Rewrite, validRewrite))
	}
	if co.OutputStyle != "" && !slices.Contains(validOutputStyles, co.OutputStyle) {
		errs = append(errs, fmt.Errorf("dictation.correction.output_style %q is invalid; valid values: %v", co.OutputStyle, validOutputStyles))
	}
	if co.VerificationThreshold < 0 || co.VerificationThreshold > 1 {
		errs = append(errs, fmt.Errorf("dictation.correction.verification_threshold %.2f is out of range [0, 1]", co.VerificationThreshold))
	}
	if co.Translate && co.TargetLanguage == "keep_source" {
		slog.Warn("dictation.correction.translate is set but target_language is keep_source; translation will be a no-op")
	}

	// History ↔ embeddings cross-validation
	if cfg.History.PostgresDSN != "" && cfg.Providers.Embeddings.Name != "" && cfg.History.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but history.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.History.PostgresDSN == "" && cfg.Providers.Embeddings.Name != "" {
		slog.Warn("providers.embeddings is configured but history.postgres_dsn is empty; semantic recall will not be available")
	}
	if cfg.History.MaxRecent < 0 {
		errs = append(errs, fmt.Errorf("history.max_recent %d must not be negative", cfg.History.MaxRecent))
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
