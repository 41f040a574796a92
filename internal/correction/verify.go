package correction

import (
	"strings"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// Verify applies the confidence gate to a correction result. Unmodified
// results pass through. A result carrying only full replacement text (no
// granular corrections) is trusted as-is; there is nothing finer-grained to
// check. When granular corrections exist, only those at or above threshold
// survive, and the surviving edits are re-applied to the original text in
// reverse list order. If the gate filters every correction out, the original
// text is restored.
//
// Substring replacement is not position-anchored: a correction whose
// original text occurs more than once applies to the first occurrence.
func Verify(res *correct.Result, threshold float64) *correct.Result {
	if threshold <= 0 {
		threshold = correct.DefaultVerificationThreshold
	}
	if !res.WasModified() || len(res.Corrections) == 0 {
		return res
	}

	var kept []correct.Correction
	for _, c := range res.Corrections {
		if c.Confidence >= threshold {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		return &correct.Result{
			OriginalText:  res.OriginalText,
			CorrectedText: res.OriginalText,
		}
	}

	text := res.OriginalText
	for i := len(kept) - 1; i >= 0; i-- {
		c := kept[i]
		if c.Original == "" {
			continue
		}
		text = strings.Replace(text, c.Original, c.Replacement, 1)
	}

	return &correct.Result{
		OriginalText:  res.OriginalText,
		CorrectedText: text,
		Corrections:   kept,
	}
}
