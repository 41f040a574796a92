package correct

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt_ReflectsOptions(t *testing.T) {
	t.Parallel()

	p := BuildSystemPrompt(Options{
		Enabled:       true,
		FixHomophones: true,
		Translate:     true,
		Target:        TargetEnglish,
		Rewrite:       IntensityMedium,
		OutputStyle:   StyleBulletList,
	})

	for _, want := range []string{"homophone", "Translate", "English", "bullet list", "corrected_text"} {
		if !strings.Contains(p, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(p, "punctuation.") {
		t.Error("punctuation task should be absent when disabled")
	}
}

func TestBuildUserPrompt_Order(t *testing.T) {
	t.Parallel()

	p := BuildUserPrompt(Request{
		Text:               "hello wrold",
		Context:            "Recent context:\n- earlier line",
		LowConfidenceWords: []string{"wrold"},
	})

	ctxIdx := strings.Index(p, "Recent context")
	lowIdx := strings.Index(p, "Low confidence words")
	textIdx := strings.Index(p, "Text to correct")
	if !(ctxIdx >= 0 && ctxIdx < lowIdx && lowIdx < textIdx) {
		t.Errorf("prompt sections out of order:\n%s", p)
	}
}

func TestParseResponse_JSON(t *testing.T) {
	t.Parallel()

	raw := `{"corrected_text": "hello world", "corrections": [{"original": "wrold", "replacement": "world", "kind": "spelling", "confidence": 0.95}]}`
	res := ParseResponse(raw, "hello wrold")

	if res.CorrectedText != "hello world" {
		t.Errorf("CorrectedText = %q", res.CorrectedText)
	}
	if len(res.Corrections) != 1 || res.Corrections[0].Kind != KindSpelling {
		t.Errorf("Corrections = %+v", res.Corrections)
	}
	if !res.WasModified() {
		t.Error("expected WasModified")
	}
}

func TestParseResponse_FencedJSON(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"corrected_text\": \"hi\", \"corrections\": []}\n```"
	res := ParseResponse(raw, "hii")
	if res.CorrectedText != "hi" {
		t.Errorf("CorrectedText = %q", res.CorrectedText)
	}
}

func TestParseResponse_PlainTextFallback(t *testing.T) {
	t.Parallel()

	res := ParseResponse("just the corrected sentence", "orig")
	if res.CorrectedText != "just the corrected sentence" {
		t.Errorf("CorrectedText = %q", res.CorrectedText)
	}
	if len(res.Corrections) != 0 {
		t.Errorf("expected no granular corrections, got %+v", res.Corrections)
	}
}

func TestParseResponse_EmptyFallsBackToInput(t *testing.T) {
	t.Parallel()

	res := ParseResponse("   ", "keep me")
	if res.CorrectedText != "keep me" {
		t.Errorf("CorrectedText = %q", res.CorrectedText)
	}
	if res.WasModified() {
		t.Error("empty response must not count as a modification")
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"no fence", "plain", "plain"},
		{"fence with lang", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without lang", "```\ntext\n```", "text"},
		{"unterminated fence", "```\ntext", "text"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StripCodeFence(tc.in); got != tc.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUnchanged(t *testing.T) {
	t.Parallel()

	r := Unchanged("same")
	if r.WasModified() {
		t.Error("Unchanged must not be modified")
	}
	if r.CorrectedText != "same" || r.OriginalText != "same" {
		t.Errorf("result = %+v", r)
	}
}
