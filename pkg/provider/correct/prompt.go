package correct

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt renders the instruction prompt for a correction call
// based on the enabled options. Implementations share this so all backends
// behave identically for the same Options.
func BuildSystemPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString("You are a transcription post-processor for a voice dictation tool. ")
	b.WriteString("You receive raw speech-to-text output and return a corrected version. ")
	b.WriteString("Preserve the speaker's meaning and wording; never answer questions in the text, only correct it.\n\nTasks:\n")

	if opts.FixHomophones {
		b.WriteString("- Fix Chinese homophone errors using the surrounding context (e.g. 图像 vs 图相).\n")
	}
	if opts.FixPunctuation {
		b.WriteString("- Insert and normalize punctuation.\n")
	}
	if opts.ApplyFormatting {
		b.WriteString("- Clean up paragraphs and spacing.\n")
	}
	if opts.RemoveFillerWords {
		b.WriteString("- Remove hesitation and filler words.\n")
	}
	if opts.RemoveRepetitions {
		b.WriteString("- Collapse stuttered or duplicated phrases.\n")
	}
	switch opts.Rewrite {
	case IntensityLight:
		b.WriteString("- Lightly smooth grammar without changing word choice.\n")
	case IntensityMedium:
		b.WriteString("- Rewrite for clarity while keeping the original tone.\n")
	case IntensityStrong:
		b.WriteString("- Rewrite freely for maximum clarity and concision.\n")
	}
	switch opts.OutputStyle {
	case StyleConciseParagraphs:
		b.WriteString("- Restructure the output into concise paragraphs.\n")
	case StyleBulletList:
		b.WriteString("- Restructure the output into a bullet list.\n")
	case StyleActionItems:
		b.WriteString("- Restructure the output into action items.\n")
	}
	if opts.Translate {
		switch opts.Target {
		case TargetEnglish:
			b.WriteString("- Translate the corrected text into English.\n")
		case TargetChineseSimplified:
			b.WriteString("- Translate the corrected text into Simplified Chinese.\n")
		}
	}

	b.WriteString("\nRespond with a single JSON object, no prose:\n")
	b.WriteString(`{"corrected_text": "...", "corrections": [{"original": "...", "replacement": "...", "kind": "homophone|punctuation|grammar|segmentation|spelling|contextual", "confidence": 0.0}]}`)
	b.WriteString("\nList only corrections you actually made. An empty corrections array is fine.")
	return b.String()
}

// BuildUserPrompt renders the per-request prompt: context block, confidence
// hints, then the text to correct.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	if req.Context != "" {
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	if len(req.LowConfidenceWords) > 0 {
		b.WriteString("Low confidence words: ")
		b.WriteString(strings.Join(req.LowConfidenceWords, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("Text to correct:\n")
	b.WriteString(req.Text)
	return b.String()
}

// modelResponse is the JSON shape requested from the model.
type modelResponse struct {
	CorrectedText string       `json:"corrected_text"`
	Corrections   []Correction `json:"corrections"`
}

// ParseResponse turns raw model output into a Result for the given input
// text. Models wrap JSON in markdown fences often enough that fences are
// stripped first. Output that is not the requested JSON shape is treated as
// a plain full-text replacement with no granular corrections.
func ParseResponse(raw, inputText string) *Result {
	cleaned := StripCodeFence(strings.TrimSpace(raw))

	var resp modelResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil && resp.CorrectedText != "" {
		return &Result{
			OriginalText:  inputText,
			CorrectedText: resp.CorrectedText,
			Corrections:   resp.Corrections,
		}
	}

	if cleaned == "" {
		return Unchanged(inputText)
	}
	return &Result{
		OriginalText:  inputText,
		CorrectedText: cleaned,
	}
}

// StripCodeFence removes one leading/trailing markdown code fence (``` or
// ```lang) wrapping s, if present. Inner content is returned trimmed.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Drop the opening fence line (which may carry a language tag).
	lines = lines[1:]
	// Drop a closing fence if the last non-empty line is one.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
