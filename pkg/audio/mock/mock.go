// Package mock provides a scriptable test double for the audio package.
//
// Use Source to drive the orchestrator in tests: pre-set the permission
// answer and Start error, push chunks with Push, and inspect the recorded
// lifecycle calls afterwards.
package mock

import (
	"context"
	"sync"

	"github.com/voxd/voxd/pkg/audio"
)

// Source is a mock implementation of audio.Source.
type Source struct {
	mu sync.Mutex

	// PermissionGranted is the answer returned by RequestPermission.
	// Defaults to false; tests that expect a successful start must set it.
	PermissionGranted bool

	// PermissionErr, if non-nil, is returned as the error from RequestPermission.
	PermissionErr error

	// StartErr, if non-nil, is returned from Start.
	StartErr error

	// Call counters, readable via the accessor methods.
	startCalls  int
	resumeCalls int
	idleCalls   int
	stopCalls   int

	running bool
	stopped bool
	out     chan audio.Chunk
}

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// NewSource returns a mock Source with permission granted and a buffered
// chunk channel, ready for a successful orchestrator start.
func NewSource() *Source {
	return &Source{
		PermissionGranted: true,
		out:               make(chan audio.Chunk, 64),
	}
}

func (s *Source) RequestPermission(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PermissionGranted, s.PermissionErr
}

func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCalls++
	if s.StartErr != nil {
		return s.StartErr
	}
	s.running = true
	s.stopped = false
	return nil
}

func (s *Source) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeCalls++
	s.running = true
	return nil
}

func (s *Source) Idle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleCalls++
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	if !s.stopped {
		s.stopped = true
		s.running = false
		close(s.out)
	}
	return nil
}

func (s *Source) Chunks() <-chan audio.Chunk { return s.out }

func (s *Source) EngineRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetEngineRunning overrides the engine-running flag, e.g. to simulate an
// engine killed by a host suspend while the state machine still says active.
func (s *Source) SetEngineRunning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = v
}

// Push delivers a chunk to the orchestrator's forwarding task.
func (s *Source) Push(c audio.Chunk) {
	s.out <- c
}

// StartCalls returns how many times Start was called.
func (s *Source) StartCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.startCalls }

// ResumeCalls returns how many times Resume was called.
func (s *Source) ResumeCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.resumeCalls }

// IdleCalls returns how many times Idle was called.
func (s *Source) IdleCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.idleCalls }

// StopCalls returns how many times Stop was called.
func (s *Source) StopCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.stopCalls }
