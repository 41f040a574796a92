package correct

// Intensity controls how aggressively the corrector may rewrite the text.
type Intensity string

const (
	IntensityOff    Intensity = "off"
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityStrong Intensity = "strong"
)

// Style selects a structured output shape for the corrected text.
type Style string

const (
	StyleOff               Style = "off"
	StyleConciseParagraphs Style = "concise_paragraphs"
	StyleBulletList        Style = "bullet_list"
	StyleActionItems       Style = "action_items"
)

// TargetLanguage selects the output language for translation.
type TargetLanguage string

const (
	TargetKeepSource        TargetLanguage = "keep_source"
	TargetEnglish           TargetLanguage = "english"
	TargetChineseSimplified TargetLanguage = "chinese_simplified"
)

// Options configures which corrections the pipeline requests. The zero value
// disables everything; use [DefaultOptions] for the usual dictation setup.
type Options struct {
	// Enabled is the global switch. When false the pipeline never calls a
	// provider.
	Enabled bool

	// FixHomophones enables Chinese homophone disambiguation.
	FixHomophones bool

	// FixPunctuation enables punctuation insertion and normalization.
	FixPunctuation bool

	// ApplyFormatting enables paragraph and spacing cleanup.
	ApplyFormatting bool

	// RemoveFillerWords strips hesitation words ("um", "那个").
	RemoveFillerWords bool

	// RemoveRepetitions collapses stuttered duplicate phrases.
	RemoveRepetitions bool

	// Translate enables translation into Target.
	Translate bool

	// Target is the translation target language. Ignored unless Translate
	// is set.
	Target TargetLanguage

	// Rewrite is the rewrite intensity.
	Rewrite Intensity

	// OutputStyle is the structured output shape.
	OutputStyle Style

	// VerificationThreshold is the minimum confidence for a granular
	// correction to survive verification. Zero means [DefaultVerificationThreshold].
	VerificationThreshold float64
}

// DefaultVerificationThreshold is the confidence below which granular
// corrections are discarded during verification.
const DefaultVerificationThreshold = 0.8

// DefaultOptions returns the standard dictation correction setup: homophone
// and punctuation fixes on, everything else off.
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		FixHomophones:  true,
		FixPunctuation: true,
		Target:         TargetKeepSource,
		Rewrite:        IntensityOff,
		OutputStyle:    StyleOff,
	}
}

// Kind classifies a single proposed correction.
type Kind string

const (
	KindHomophone    Kind = "homophone"
	KindPunctuation  Kind = "punctuation"
	KindGrammar      Kind = "grammar"
	KindSegmentation Kind = "segmentation"
	KindSpelling     Kind = "spelling"
	KindContextual   Kind = "contextual"
)

// Correction is one proposed edit within a larger text.
type Correction struct {
	// Original is the substring of the source text to replace.
	Original string `json:"original"`

	// Replacement is the text to substitute.
	Replacement string `json:"replacement"`

	// Kind classifies the edit.
	Kind Kind `json:"kind"`

	// Confidence is the provider's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one correction call.
type Result struct {
	// OriginalText is the uncorrected input.
	OriginalText string

	// CorrectedText is the provider's output after sanitization.
	CorrectedText string

	// Corrections is the granular edit list. Often empty: most models return
	// only the full replacement text.
	Corrections []Correction
}

// WasModified reports whether the corrected text differs from the input.
func (r Result) WasModified() bool {
	return r.OriginalText != r.CorrectedText
}

// Unchanged returns a Result that leaves text as-is.
func Unchanged(text string) *Result {
	return &Result{OriginalText: text, CorrectedText: text}
}
