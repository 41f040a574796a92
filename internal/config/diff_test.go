package config_test

import (
	"testing"

	"github.com/voxd/voxd/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Dictation: config.DictationConfig{
			Language: "en",
			Correction: config.CorrectionOptions{
				Enabled:        true,
				FixHomophones:  true,
				FixPunctuation: true,
			},
		},
		History: config.HistoryConfig{
			UserTerms: []string{"kubernetes", "pgvector"},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("Diff of identical configs reported changes: %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want %q", d.NewLogLevel, config.LogDebug)
	}
}

func TestDiff_CorrectionOptions(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Dictation.Correction.Rewrite = "light"

	d := config.Diff(old, new)
	if !d.CorrectionChanged {
		t.Fatal("CorrectionChanged should be true")
	}
	if d.NewCorrection.Rewrite != "light" {
		t.Errorf("NewCorrection.Rewrite = %q, want light", d.NewCorrection.Rewrite)
	}
}

func TestDiff_Language(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Dictation.Language = "zh"

	d := config.Diff(old, new)
	if !d.LanguageChanged || d.NewLanguage != "zh" {
		t.Errorf("language diff = %+v, want changed to zh", d)
	}
}

func TestDiff_UserTerms(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.History.UserTerms = append(new.History.UserTerms, "voxd")

	d := config.Diff(old, new)
	if !d.UserTermsChanged {
		t.Fatal("UserTermsChanged should be true")
	}
	if len(d.NewUserTerms) != 3 {
		t.Errorf("NewUserTerms = %v, want 3 terms", d.NewUserTerms)
	}
}

func TestDiff_ProviderChangeIsNotHotReloadable(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Providers.ASR.Name = "deepgram"

	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("provider changes must not be reported as hot-reloadable: %+v", d)
	}
}
