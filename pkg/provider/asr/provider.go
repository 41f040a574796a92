// Package asr defines the Provider interface for transcription backends.
//
// An ASR provider wraps a speech-to-text engine (e.g., a local whisper.cpp
// model, a whisper HTTP server, Deepgram, or the OpenAI transcription API)
// and exposes a uniform interface with two modes. Streaming providers accept
// audio incrementally via FeedAudio and publish partial and final results on
// a [Stream]; batch providers receive the whole utterance at once through
// Transcribe. The orchestrator probes SupportsStreaming and drives whichever
// mode the active provider offers.
//
// Implementations must be safe for concurrent use: FeedAudio is called from
// the audio-forwarding goroutine while StopStreaming runs on the control
// path.
package asr

import (
	"context"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/types"
)

// StreamConfig describes the audio format and recognition hints for a new
// streaming session.
type StreamConfig struct {
	// Format is the PCM layout of chunks fed via FeedAudio.
	Format audio.Format

	// Language is the BCP-47 language tag for recognition (e.g. "en", "zh").
	// Empty lets the provider auto-detect, if supported.
	Language string

	// Keywords is a list of vocabulary hints (user dictionary terms) that
	// increase recognition probability for uncommon words.
	Keywords []string
}

// Provider is the abstraction over any transcription backend.
//
// Exactly one streaming session may be open per Provider instance at a time;
// the orchestrator enforces this. Batch Transcribe calls are independent and
// may run concurrently with each other.
type Provider interface {
	// ID returns the stable machine identifier, e.g. "whisper-server".
	ID() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// SupportsStreaming reports whether StartStreaming/FeedAudio/StopStreaming
	// are usable. When false, the orchestrator buffers the utterance and
	// calls Transcribe once at stop.
	SupportsStreaming() bool

	// RequiresNetwork reports whether the provider needs connectivity.
	// Used by provider selection to prefer local engines when offline.
	RequiresNetwork() bool

	// Languages returns the BCP-47 tags the provider can recognise, or nil
	// when it auto-detects any language.
	Languages() []string

	// IsAvailable probes whether the backend is reachable and ready
	// (model loaded, server answering, API key present). Must be cheap
	// enough to call on every session start.
	IsAvailable(ctx context.Context) bool

	// Transcribe performs batch recognition of a complete utterance.
	// Returns ErrNoAudioData when the chunk is empty.
	Transcribe(ctx context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error)

	// StartStreaming opens a streaming session. Batch-only providers
	// (SupportsStreaming false) return an already-ended Stream and a nil
	// error; lacking streaming is a capability, not a failure. Returns
	// ErrSessionActive when a session is already open.
	StartStreaming(ctx context.Context, cfg StreamConfig) (*Stream, error)

	// FeedAudio delivers one chunk to the open streaming session.
	// Returns ErrNotStreaming when no session is open.
	FeedAudio(chunk audio.Chunk) error

	// StopStreaming flushes buffered audio, closes the session, and returns
	// the definitive final result for the utterance, or nil when the session
	// produced no speech. The session's Stream is closed before
	// StopStreaming returns.
	StopStreaming(ctx context.Context) (*types.TranscriptionResult, error)
}
