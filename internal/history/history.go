// Package history persists finalized dictation utterances and the user's
// dictionary terms across restarts. The orchestrator appends each delivered
// utterance; at startup the conversation context is seeded from Recent so
// corrections keep working across daemon restarts.
//
// History is best-effort: a store failure is logged and never fails a
// dictation session.
package history

import (
	"context"
	"time"
)

// Utterance is one finalized dictation result.
type Utterance struct {
	// ID is a unique identifier (UUID).
	ID string

	// SessionID identifies the dictation session that produced this text.
	SessionID string

	// Text is the delivered (possibly corrected) text.
	Text string

	// RawText is the uncorrected transcription, empty when no correction ran.
	RawText string

	// Language is the detected language tag.
	Language string

	// Provider is the ASR provider ID that produced the transcription.
	Provider string

	// Timestamp marks when the utterance was finalized.
	Timestamp time.Time

	// Duration is the audio length of the utterance.
	Duration time.Duration
}

// Store is the persistence abstraction for dictation history.
type Store interface {
	// Append stores one finalized utterance.
	Append(ctx context.Context, u Utterance) error

	// Recent returns up to n utterances, newest first.
	Recent(ctx context.Context, n int) ([]Utterance, error)

	// UserTerms returns the user's dictionary terms.
	UserTerms(ctx context.Context) ([]string, error)

	// SaveUserTerms replaces the user's dictionary terms.
	SaveUserTerms(ctx context.Context, terms []string) error

	// Close releases store resources.
	Close()
}
