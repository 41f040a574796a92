package correction

import (
	"strings"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// leakMarkers are prompt-scaffolding labels that models sometimes echo back.
// A line whose normalized form starts with any of these ends the usable
// output; everything from that line on is discarded.
var leakMarkers = []string{
	"recent context:",
	"user dictionary terms:",
	"low confidence words:",
	"text to correct:",
	"最近上下文",
	"用户词典",
	"低置信度词",
}

// leadingLabels are prefixes models prepend despite being asked not to.
// At most one is stripped, from the first line only.
var leadingLabels = []string{
	"corrected text:",
	"corrected:",
	"修正后文本：",
	"修正后文本:",
}

// Sanitize cleans raw model output: strips a wrapping code fence, truncates
// at the first echoed prompt-scaffolding line, and drops one leading
// "corrected text:" style label. When cleaning leaves nothing, original is
// returned instead so a confused model never erases the user's words.
func Sanitize(text, original string) string {
	cleaned := correct.StripCodeFence(text)

	var kept []string
	for _, line := range strings.Split(cleaned, "\n") {
		if startsWithLeakMarker(line) {
			break
		}
		kept = append(kept, line)
	}
	cleaned = strings.Join(kept, "\n")

	cleaned = stripLeadingLabel(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return original
	}
	return cleaned
}

func startsWithLeakMarker(line string) bool {
	normalized := strings.ToLower(strings.TrimSpace(line))
	for _, marker := range leakMarkers {
		if strings.HasPrefix(normalized, marker) {
			return true
		}
	}
	return false
}

func stripLeadingLabel(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, label := range leadingLabels {
		if strings.HasPrefix(lower, label) {
			return strings.TrimSpace(trimmed[len(label):])
		}
	}
	return trimmed
}
