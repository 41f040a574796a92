// Package types defines the shared types used across all voxd packages.
//
// These types form the lingua franca between the audio layer, transcription
// providers, the correction pipeline, and the session orchestrator. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import (
	"time"
	"unicode"
)

// LowConfidenceThreshold is the per-word confidence below which a word is
// treated as low-confidence by the correction pipeline.
const LowConfidenceThreshold = 0.7

// Language classifies the detected language of a transcription result.
type Language string

const (
	LanguageChinese Language = "chinese"
	LanguageEnglish Language = "english"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// IsChineseOrMixed reports whether l contains Chinese content. Homophone
// correction is only meaningful for these languages.
func (l Language) IsChineseOrMixed() bool {
	return l == LanguageChinese || l == LanguageMixed
}

// DetectLanguage classifies text by the ratio of CJK to Latin letter runes.
// Text with no letters at all is LanguageUnknown.
func DetectLanguage(text string) Language {
	var cjk, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case unicode.IsLetter(r):
			latin++
		}
	}
	switch {
	case cjk == 0 && latin == 0:
		return LanguageUnknown
	case cjk == 0:
		return LanguageEnglish
	case latin == 0:
		return LanguageChinese
	default:
		return LanguageMixed
	}
}

// WordConfidence holds per-word confidence metadata from providers that
// support it.
type WordConfidence struct {
	Word       string
	Confidence float64
}

// IsLowConfidence reports whether this word falls below
// [LowConfidenceThreshold].
func (w WordConfidence) IsLowConfidence() bool {
	return w.Confidence < LowConfidenceThreshold
}

// TranscriptionResult is a speech-to-text result from a transcription
// provider. Both partial (interim) and final results use this type. Values
// are immutable once published; providers must not reuse or mutate a result
// after emitting it.
type TranscriptionResult struct {
	// Text is the transcribed speech content.
	Text string

	// Language is the detected language of Text. Providers that do not
	// detect language leave this as LanguageUnknown; consumers may fall
	// back to [DetectLanguage].
	Language Language

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) result.
	IsFinal bool

	// Words contains per-word confidence detail when available. Nil for
	// providers that don't supply word-level output.
	Words []WordConfidence

	// Timestamp marks when the underlying audio was captured.
	Timestamp time.Time
}

// AverageConfidence returns the mean per-word confidence, or 1.0 when no
// word-level data exists. The 1.0 default means "no evidence of error", not
// "measured as correct" — the correction pipeline's skip heuristic only
// trusts averages backed by actual word data.
func (t TranscriptionResult) AverageConfidence() float64 {
	if len(t.Words) == 0 {
		return 1.0
	}
	var sum float64
	for _, w := range t.Words {
		sum += w.Confidence
	}
	return sum / float64(len(t.Words))
}

// LowConfidenceWords returns the words whose confidence falls below
// [LowConfidenceThreshold], in result order.
func (t TranscriptionResult) LowConfidenceWords() []string {
	var out []string
	for _, w := range t.Words {
		if w.IsLowConfidence() {
			out = append(out, w.Word)
		}
	}
	return out
}
