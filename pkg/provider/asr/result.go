package asr

import (
	"strings"

	"github.com/voxd/voxd/pkg/types"
)

// PreferredStopResult picks the definitive result for an utterance at stop
// time, given the last final result and the last partial seen on the stream.
//
// The final wins when it has text. A final with empty or whitespace-only text
// (which happens when the upstream connection cuts off mid-flush) is
// normalized by substituting the most recent non-empty partial's text. When
// no final ever arrived, the partial is promoted to final wholesale. Returns
// nil when neither carries anything.
func PreferredStopResult(final, partial *types.TranscriptionResult) *types.TranscriptionResult {
	if final != nil {
		if strings.TrimSpace(final.Text) != "" {
			return final
		}
		if partial != nil && strings.TrimSpace(partial.Text) != "" {
			merged := *final
			merged.Text = partial.Text
			if merged.Language == types.LanguageUnknown || merged.Language == "" {
				merged.Language = partial.Language
			}
			return &merged
		}
		return final
	}
	if partial != nil {
		promoted := *partial
		promoted.IsFinal = true
		return &promoted
	}
	return nil
}
