// Package correct defines the Provider interface for LLM-backed text
// correction and the request/response types shared by all implementations.
//
// A correction provider receives one dictated utterance together with the
// compacted conversation context and per-word confidence hints, asks its
// model for a cleaned-up version, and returns a [Result] that may carry a
// granular edit list. The pipeline in internal/correction decides when to
// call a provider and how much of its output to trust; implementations here
// only do the network call and response parsing.
//
// Implementations must be safe for concurrent use.
package correct

import "context"

// Request carries everything a provider needs for one correction call.
type Request struct {
	// Text is the raw transcription to correct.
	Text string

	// Context is the compacted conversation context block, possibly empty.
	Context string

	// LowConfidenceWords lists words the ASR engine was unsure about, in
	// utterance order.
	LowConfidenceWords []string

	// Options selects which corrections to request.
	Options Options
}

// Provider is the abstraction over any correction backend.
type Provider interface {
	// ID returns the stable machine identifier, e.g. "openai".
	ID() string

	// IsAvailable reports whether the backend is configured and reachable
	// enough to attempt a call (credentials present, local server up).
	IsAvailable(ctx context.Context) bool

	// Correct performs one correction call. The returned result's
	// CorrectedText is raw model output; sanitization and verification are
	// the caller's job.
	Correct(ctx context.Context, req Request) (*Result, error)
}
