// Package mock provides a call-recording test double for the bridge.Bridge
// interface.
package mock

import (
	"sync"

	"github.com/voxd/voxd/internal/bridge"
)

// StateCall records one PublishState invocation.
type StateCall struct {
	State     string
	SessionID string
}

// PartialCall records one PublishPartial invocation.
type PartialCall struct {
	Text      string
	Seq       int
	IsFinal   bool
	SessionID string
}

// Bridge records every call for later inspection.
type Bridge struct {
	mu sync.Mutex

	// StateCalls holds PublishState invocations in order.
	StateCalls []StateCall

	// PartialCalls holds PublishPartial invocations in order.
	PartialCalls []PartialCall

	// ClearCount is the number of Clear invocations.
	ClearCount int

	// Events holds Notify invocations in order.
	Events []bridge.Event
}

var _ bridge.Bridge = (*Bridge)(nil)

// New returns an empty recording bridge.
func New() *Bridge {
	return &Bridge{}
}

func (b *Bridge) PublishState(state, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StateCalls = append(b.StateCalls, StateCall{State: state, SessionID: sessionID})
}

func (b *Bridge) PublishPartial(text string, seq int, isFinal bool, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PartialCalls = append(b.PartialCalls, PartialCall{
		Text:      text,
		Seq:       seq,
		IsFinal:   isFinal,
		SessionID: sessionID,
	})
}

func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ClearCount++
}

func (b *Bridge) Notify(event bridge.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, event)
}

// States returns the published state names in order.
func (b *Bridge) States() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.StateCalls))
	for i, c := range b.StateCalls {
		out[i] = c.State
	}
	return out
}

// LastPartial returns the most recent partial, or a zero value when none was
// published.
func (b *Bridge) LastPartial() PartialCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.PartialCalls) == 0 {
		return PartialCall{}
	}
	return b.PartialCalls[len(b.PartialCalls)-1]
}

// PartialCount returns how many partials were published.
func (b *Bridge) PartialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.PartialCalls)
}
