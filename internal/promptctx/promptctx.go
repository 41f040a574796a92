// Package promptctx maintains the conversation context used to ground
// correction prompts: a bounded ring of recent utterances plus the user's
// dictionary terms, compacted into a small, relevance-ranked block that fits
// an LLM prompt budget.
//
// Context values are immutable. Every update returns a new value, so a
// compaction running on one snapshot can never observe a concurrent append.
package promptctx

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxRecent is the default cap on retained recent utterances.
	DefaultMaxRecent = 10

	// DefaultMaxUserTerms caps the user dictionary terms considered for a
	// prompt.
	DefaultMaxUserTerms = 30

	// DefaultCharBudget is the default total character budget for a
	// compacted block.
	DefaultCharBudget = 600

	// userTermFloor is the minimum number of user terms the shrink loop
	// keeps. Dictionary terms decay in value slower than old utterances, so
	// they are trimmed last and never below this floor.
	userTermFloor = 8

	recentLabel = "Recent context:"
	termsLabel  = "User dictionary terms:"
)

// Context is an immutable snapshot of recent utterances (newest first) and
// user dictionary terms.
type Context struct {
	recent    []string
	terms     []string
	maxRecent int
	maxTerms  int
}

// New returns an empty Context with the given caps. Zero or negative caps
// fall back to the defaults.
func New(maxRecent, maxTerms int) Context {
	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecent
	}
	if maxTerms <= 0 {
		maxTerms = DefaultMaxUserTerms
	}
	return Context{maxRecent: maxRecent, maxTerms: maxTerms}
}

// Push returns a new Context with text prepended as the newest utterance.
// Blank text is ignored. The recent list is trimmed to the cap.
func (c Context) Push(text string) Context {
	if strings.TrimSpace(text) == "" {
		return c
	}
	recent := make([]string, 0, len(c.recent)+1)
	recent = append(recent, text)
	recent = append(recent, c.recent...)
	if len(recent) > c.maxRecent {
		recent = recent[:c.maxRecent]
	}
	out := c
	out.recent = recent
	return out
}

// WithTerms returns a new Context with the given user dictionary terms.
func (c Context) WithTerms(terms []string) Context {
	cp := make([]string, len(terms))
	copy(cp, terms)
	out := c
	out.terms = cp
	return out
}

// Recent returns the retained utterances, newest first.
func (c Context) Recent() []string {
	cp := make([]string, len(c.recent))
	copy(cp, c.recent)
	return cp
}

// Terms returns the user dictionary terms.
func (c Context) Terms() []string {
	cp := make([]string, len(c.terms))
	copy(cp, c.terms)
	return cp
}

// Compact renders the context into a prompt block sized for charBudget,
// ranked by relevance to the focus text (the utterance currently being
// corrected). A non-positive charBudget uses DefaultCharBudget. Returns ""
// when the context holds nothing.
func (c Context) Compact(focus string, charBudget int) string {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}

	lines := dedupe(c.recent)
	dedupedTerms := dedupe(c.terms)
	if len(dedupedTerms) > c.maxTerms {
		dedupedTerms = dedupedTerms[:c.maxTerms]
	}
	terms := make([]string, len(dedupedTerms))
	for i, t := range dedupedTerms {
		terms[i] = t.text
	}

	ranked := rank(lines, terms, focus)
	if len(ranked) > c.maxRecent {
		ranked = ranked[:c.maxRecent]
	}
	// Re-sort the selection chronologically (oldest first) so the rendered
	// block reads top to bottom in speaking order.
	sortByRecencyDescIndex(ranked)

	selected := make([]string, len(ranked))
	for i, e := range ranked {
		selected[i] = e.text
	}

	out := render(selected, terms)

	// Shrink order: oldest selected lines first, then trailing terms down
	// to the floor, then a hard truncate.
	for len(out) > charBudget && len(selected) > 1 {
		selected = selected[1:]
		out = render(selected, terms)
	}
	for len(out) > charBudget && len(terms) > userTermFloor {
		terms = terms[:len(terms)-1]
		out = render(selected, terms)
	}
	if len(out) > charBudget {
		out = hardTruncate(out, charBudget)
	}
	return out
}

// ---- ranking ----------------------------------------------------------------

type entry struct {
	text  string
	index int // recency index: 0 = newest
	score int
}

// rank scores each deduplicated line against the focus text. Higher score
// wins; ties break toward the more recent line.
func rank(lines []indexed, terms []string, focus string) []entry {
	focusTokens := tokenSet(focus)

	lowerTerms := make([]string, len(terms))
	for i, t := range terms {
		lowerTerms[i] = strings.ToLower(t)
	}

	out := make([]entry, 0, len(lines))
	for _, ln := range lines {
		score := 80 - 6*ln.index
		if score < 0 {
			score = 0
		}

		lineTokens := tokenSet(ln.text)
		overlap := 0
		for tok := range focusTokens {
			if _, ok := lineTokens[tok]; ok {
				overlap++
			}
		}
		score += 15 * overlap

		lower := strings.ToLower(ln.text)
		for _, t := range lowerTerms {
			if t != "" && strings.Contains(lower, t) {
				score += 20
				break
			}
		}

		out = append(out, entry{text: ln.text, index: ln.index, score: score})
	}

	// Stable selection sort by (score desc, index asc). Context sizes are
	// tiny; clarity beats asymptotics here.
	for i := 0; i < len(out); i++ {
		best := i
		for j := i + 1; j < len(out); j++ {
			if out[j].score > out[best].score ||
				(out[j].score == out[best].score && out[j].index < out[best].index) {
				best = j
			}
		}
		out[i], out[best] = out[best], out[i]
	}
	return out
}

func sortByRecencyDescIndex(entries []entry) {
	// Oldest first means larger recency index first.
	for i := 0; i < len(entries); i++ {
		best := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].index > entries[best].index {
				best = j
			}
		}
		entries[i], entries[best] = entries[best], entries[i]
	}
}

// ---- rendering --------------------------------------------------------------

func render(lines, terms []string) string {
	var blocks []string
	if len(lines) > 0 {
		var b strings.Builder
		b.WriteString(recentLabel)
		for _, ln := range lines {
			b.WriteString("\n- ")
			b.WriteString(ln)
		}
		blocks = append(blocks, b.String())
	}
	if len(terms) > 0 {
		blocks = append(blocks, termsLabel+" "+strings.Join(terms, ", "))
	}
	return strings.Join(blocks, "\n\n")
}

// hardTruncate cuts s to at most budget bytes without splitting a rune.
func hardTruncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	for budget > 0 && !utf8RuneStart(s[budget]) {
		budget--
	}
	return s[:budget]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// ---- normalization ----------------------------------------------------------

type indexed struct {
	text  string
	index int
}

// dedupe drops later duplicates by normalized key, preserving each survivor's
// original recency index.
func dedupe(items []string) []indexed {
	seen := make(map[string]struct{}, len(items))
	out := make([]indexed, 0, len(items))
	for i, item := range items {
		key := NormalizeKey(item)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, indexed{text: item, index: i})
	}
	return out
}

// NormalizeKey lowercases, folds diacritics, and collapses whitespace so
// that trivially different renderings of the same utterance dedupe.
func NormalizeKey(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition: fold it away
		case unicode.IsSpace(r):
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenSet extracts the token set used for overlap scoring: lowercased
// alphanumeric runs of at least two characters, plus CJK runs of any length.
func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	var run []rune
	var runCJK bool

	flush := func() {
		if len(run) == 0 {
			return
		}
		if runCJK || len(run) >= 2 {
			out[strings.ToLower(string(run))] = struct{}{}
		}
		run = run[:0]
	}

	for _, r := range s {
		isCJK := unicode.Is(unicode.Han, r)
		isAlnum := !isCJK && (unicode.IsLetter(r) || unicode.IsDigit(r))
		switch {
		case isCJK:
			if len(run) > 0 && !runCJK {
				flush()
			}
			runCJK = true
			run = append(run, r)
		case isAlnum:
			if len(run) > 0 && runCJK {
				flush()
			}
			runCJK = false
			run = append(run, r)
		default:
			flush()
		}
	}
	flush()
	return out
}
