package correction

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/voxd/voxd/pkg/provider/correct"
	"github.com/voxd/voxd/pkg/types"
)

// Minimum trimmed lengths (in runes) before an enabled option justifies a
// provider call. Very short utterances rarely benefit from rewriting and the
// round-trip latency is user-visible.
const (
	minLenRewrite    = 14
	minLenStyle      = 18
	minLenFormatting = 16
	minLenCleanup    = 10
)

// highConfidenceSkip is the measured average confidence above which an
// English utterance with word-level data is trusted as-is.
const highConfidenceSkip = 0.95

// jaroWinklerNear is the similarity above which a transcript word counts as
// phonetically close to a user dictionary term.
const jaroWinklerNear = 0.93

// PreDetect decides whether an utterance needs a correction call at all,
// without any network traffic. It returns false (skip) when corrections are
// disabled or the input is blank, true when any enabled option plausibly
// applies, and otherwise skips only on positive evidence of high ASR
// confidence: measured word confidences averaging above 0.95 in English.
// Providers that omit word confidences default the average to 1.0, which is
// absence of evidence, not confidence — those default to run.
func PreDetect(res types.TranscriptionResult, terms []string, opts correct.Options) bool {
	trimmed := strings.TrimSpace(res.Text)
	if !opts.Enabled || trimmed == "" {
		return false
	}

	length := utf8.RuneCountInString(trimmed)
	lang := res.Language
	if lang == types.LanguageUnknown || lang == "" {
		lang = types.DetectLanguage(trimmed)
	}

	switch {
	case len(res.LowConfidenceWords()) > 0:
		return true
	case opts.Translate && opts.Target != correct.TargetKeepSource:
		return true
	case opts.Rewrite != correct.IntensityOff && opts.Rewrite != "" && length >= minLenRewrite:
		return true
	case opts.OutputStyle != correct.StyleOff && opts.OutputStyle != "" && length >= minLenStyle:
		return true
	case opts.ApplyFormatting && length >= minLenFormatting:
		return true
	case (opts.RemoveFillerWords || opts.RemoveRepetitions) && length >= minLenCleanup:
		return true
	case opts.FixHomophones && lang.IsChineseOrMixed():
		return true
	case len(PhoneticTermMatches(trimmed, terms)) > 0:
		return true
	}

	// Skip heuristic: only measured, high-confidence English gets a pass.
	if len(res.Words) > 0 && res.AverageConfidence() > highConfidenceSkip && lang == types.LanguageEnglish {
		return false
	}
	return true
}

// PhoneticTermMatches returns the user dictionary terms that some word of
// text sounds like without matching exactly, a strong hint that the ASR
// engine misspelled a proper noun. Only Latin-script words participate;
// Double Metaphone has no meaning for CJK input.
func PhoneticTermMatches(text string, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var out []string
	for _, term := range terms {
		if term == "" || !isLatinWord(term) {
			continue
		}
		termLower := strings.ToLower(term)
		tp, ts := matchr.DoubleMetaphone(termLower)
		for _, w := range words {
			w = strings.Trim(w, ".,!?;:\"'()[]")
			if w == "" || !isLatinWord(w) {
				continue
			}
			wLower := strings.ToLower(w)
			if wLower == termLower {
				// Exact hit: the engine already got it right.
				break
			}
			wp, ws := matchr.DoubleMetaphone(wLower)
			phonetic := tp != "" && (wp == tp || (ts != "" && ws == ts))
			if phonetic || matchr.JaroWinkler(wLower, termLower, false) >= jaroWinklerNear {
				out = append(out, term)
				break
			}
		}
	}
	return out
}

func isLatinWord(s string) bool {
	for _, r := range s {
		if r > 0x024F {
			return false
		}
	}
	return true
}
