package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged   bool
	NewLogLevel       LogLevel
	CorrectionChanged bool              // dictation.correction options changed
	NewCorrection     CorrectionOptions // valid when CorrectionChanged
	LanguageChanged   bool
	NewLanguage       string
	UserTermsChanged  bool
	NewUserTerms      []string
}

// Changed reports whether any hot-reloadable field differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CorrectionChanged || d.LanguageChanged || d.UserTermsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: provider
// selection, listen address, and history backend all require one.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Dictation.Correction != new.Dictation.Correction {
		d.CorrectionChanged = true
		d.NewCorrection = new.Dictation.Correction
	}

	if old.Dictation.Language != new.Dictation.Language {
		d.LanguageChanged = true
		d.NewLanguage = new.Dictation.Language
	}

	if !slices.Equal(old.History.UserTerms, new.History.UserTerms) {
		d.UserTermsChanged = true
		d.NewUserTerms = new.History.UserTerms
	}

	return d
}
