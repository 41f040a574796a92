package asr

import (
	"sync"

	"github.com/voxd/voxd/pkg/types"
)

// Stream carries transcription results from a streaming session to its
// consumer. Partial and final results share one ordered channel; consumers
// inspect [types.TranscriptionResult.IsFinal].
//
// The provider is the sole publisher and closes the stream when the session
// ends; the orchestrator is the sole consumer.
type Stream struct {
	mu      sync.Mutex
	closed  bool
	results chan types.TranscriptionResult
	done    chan struct{}
}

// NewStream creates a Stream with the given result buffer size.
func NewStream(buffer int) *Stream {
	return &Stream{
		results: make(chan types.TranscriptionResult, buffer),
		done:    make(chan struct{}),
	}
}

// Results returns the ordered result feed. Closed when the session ends.
func (s *Stream) Results() <-chan types.TranscriptionResult {
	return s.results
}

// Done is closed when the stream has ended.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Publish emits a result to the consumer. Publishing on a closed stream is a
// no-op: a provider's read loop may race the session teardown, and a late
// result loses to the close. When the consumer falls behind and the buffer is
// full, the result is dropped: a newer partial supersedes it anyway, and
// finals are re-delivered through StopStreaming.
func (s *Stream) Publish(res types.TranscriptionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.results <- res:
	default:
	}
}

// Close ends the stream. Safe to call more than once and concurrently with
// Publish.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.results)
}

// ClosedStream returns an already-ended Stream. Batch-mode code paths that
// still need a Stream value use it in place of nil.
func ClosedStream() *Stream {
	s := NewStream(0)
	s.Close()
	return s
}
