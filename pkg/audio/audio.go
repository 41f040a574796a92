// Package audio defines the capture-side contract consumed by the dictation
// orchestrator.
//
// The central abstraction is [Source]: a microphone (or any other live PCM
// feed) that can be started, resumed from a warm engine, parked in a
// low-power idle tap, and fully stopped. Concrete implementations live in
// adapter subpackages (e.g. audio/opus for an Opus packet feed from a capture
// daemon); the orchestrator never touches platform audio APIs directly.
//
// This package lives under pkg/ because external capture adapters are
// expected to implement [Source].
package audio

import (
	"context"
	"errors"
)

// Errors returned by [Source.Start]. The orchestrator maps these onto its
// start-failure error state.
var (
	// ErrNoPermission indicates microphone permission was denied or revoked.
	ErrNoPermission = errors.New("audio: microphone permission denied")

	// ErrNoInputFormat indicates the device reported no usable input format.
	ErrNoInputFormat = errors.New("audio: no input format available")

	// ErrFormatUnsupported indicates the device format cannot be converted
	// to the pipeline format.
	ErrFormatUnsupported = errors.New("audio: input format unsupported")
)

// Source is a live audio capture feed.
//
// Lifecycle: Start acquires the underlying engine and begins delivering
// chunks; Idle parks the engine in a low-power tap that keeps it warm but
// delivers no data; Resume restarts delivery on a warm engine without a full
// reacquire; Stop releases the engine entirely. The chunk channel stays open
// across Idle/Resume cycles and is closed only by Stop.
//
// Exactly one session owns a Source at a time; implementations must be safe
// for concurrent use of the lifecycle methods against the chunk reader.
type Source interface {
	// RequestPermission asks the platform for microphone access. It returns
	// (true, nil) when access is granted, (false, nil) when the user denied
	// it, and a non-nil error for platform failures.
	RequestPermission(ctx context.Context) (bool, error)

	// Start acquires the capture engine and begins delivering chunks.
	// Returns ErrNoPermission, ErrNoInputFormat, or ErrFormatUnsupported
	// when the engine cannot be brought up.
	Start(ctx context.Context) error

	// Resume restarts chunk delivery on a warm engine previously parked
	// with Idle. Calling Resume on a stopped source is an error.
	Resume() error

	// Idle parks the engine in a low-power tap: the underlying resource
	// stays open (so a later Resume is near-instant) but no chunks flow.
	Idle() error

	// Stop fully releases the capture engine and closes the chunk channel.
	// Safe to call more than once.
	Stop() error

	// Chunks returns the live chunk feed. The channel is closed by Stop.
	Chunks() <-chan Chunk

	// EngineRunning reports whether the underlying engine is currently
	// alive (running or idle-tapped). Used by session recovery to
	// distinguish a live session from a stale one.
	EngineRunning() bool
}
