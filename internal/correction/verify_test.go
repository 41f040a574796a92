package correction

import (
	"testing"

	"github.com/voxd/voxd/pkg/provider/correct"
)

func TestVerify_ConfidenceGate(t *testing.T) {
	t.Parallel()

	res := &correct.Result{
		OriginalText:  "teh quick brown fxo",
		CorrectedText: "the quick brown fox",
		Corrections: []correct.Correction{
			{Original: "teh", Replacement: "the", Kind: correct.KindSpelling, Confidence: 0.9},
			{Original: "fxo", Replacement: "fox", Kind: correct.KindSpelling, Confidence: 0.5},
		},
	}

	got := Verify(res, 0.8)
	if got.CorrectedText != "the quick brown fxo" {
		t.Errorf("CorrectedText = %q, want only the 0.9 correction applied", got.CorrectedText)
	}
	if len(got.Corrections) != 1 || got.Corrections[0].Original != "teh" {
		t.Errorf("Corrections = %+v", got.Corrections)
	}
}

func TestVerify_AllBelowThresholdReverts(t *testing.T) {
	t.Parallel()

	res := &correct.Result{
		OriginalText:  "keep me intact",
		CorrectedText: "something else",
		Corrections: []correct.Correction{
			{Original: "keep", Replacement: "hold", Confidence: 0.4},
			{Original: "intact", Replacement: "whole", Confidence: 0.7},
		},
	}

	got := Verify(res, 0.8)
	if got.CorrectedText != "keep me intact" {
		t.Errorf("CorrectedText = %q, want revert to original", got.CorrectedText)
	}
	if len(got.Corrections) != 0 {
		t.Errorf("Corrections = %+v, want none", got.Corrections)
	}
}

func TestVerify_FullReplacementTrusted(t *testing.T) {
	t.Parallel()

	res := &correct.Result{
		OriginalText:  "rough text",
		CorrectedText: "polished text",
	}
	got := Verify(res, 0.8)
	if got.CorrectedText != "polished text" {
		t.Errorf("CorrectedText = %q, full replacement should be trusted", got.CorrectedText)
	}
}

func TestVerify_UnmodifiedPassesThrough(t *testing.T) {
	t.Parallel()

	res := correct.Unchanged("same text")
	if got := Verify(res, 0.8); got != res {
		t.Error("unmodified result should be returned as-is")
	}
}

func TestVerify_AppliesInReverseOrder(t *testing.T) {
	t.Parallel()

	// The second correction's original overlaps text produced by applying
	// the first; reverse-order application against the original avoids the
	// interaction.
	res := &correct.Result{
		OriginalText:  "alpha beta gamma",
		CorrectedText: "ALPHA beta GAMMA",
		Corrections: []correct.Correction{
			{Original: "alpha", Replacement: "ALPHA", Confidence: 0.95},
			{Original: "gamma", Replacement: "GAMMA", Confidence: 0.9},
		},
	}
	got := Verify(res, 0.8)
	if got.CorrectedText != "ALPHA beta GAMMA" {
		t.Errorf("CorrectedText = %q", got.CorrectedText)
	}
}

func TestVerify_ZeroThresholdUsesDefault(t *testing.T) {
	t.Parallel()

	res := &correct.Result{
		OriginalText:  "abc",
		CorrectedText: "xyz",
		Corrections: []correct.Correction{
			{Original: "abc", Replacement: "xyz", Confidence: 0.79},
		},
	}
	// 0.79 is below the 0.8 default; the edit must be filtered.
	got := Verify(res, 0)
	if got.CorrectedText != "abc" {
		t.Errorf("CorrectedText = %q, want original", got.CorrectedText)
	}
}
