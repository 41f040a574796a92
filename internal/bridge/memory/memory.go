// Package memory provides an in-process Bridge implementation. It keeps the
// latest published state in memory behind a mutex so that the health endpoint
// and tests can read a consistent snapshot of what the overlay would show.
package memory

import (
	"sync"
	"time"

	"github.com/voxd/voxd/internal/bridge"
)

// maxEvents bounds the retained notification history.
const maxEvents = 32

// Snapshot is a point-in-time copy of the bridge contents.
type Snapshot struct {
	// State is the last published session state, "" before the first publish.
	State string

	// SessionID is the session the state belongs to.
	SessionID string

	// PartialText is the last published partial or final text.
	PartialText string

	// Seq is the sequence number of the last partial.
	Seq int

	// IsFinal reports whether the last partial was a final result.
	IsFinal bool

	// UpdatedAt is when the snapshot content last changed.
	UpdatedAt time.Time

	// Events holds recent notifications, oldest first.
	Events []bridge.Event
}

// Bridge is an in-memory implementation of [bridge.Bridge].
type Bridge struct {
	mu   sync.Mutex
	snap Snapshot
}

var _ bridge.Bridge = (*Bridge)(nil)

// New returns an empty in-memory bridge.
func New() *Bridge {
	return &Bridge{}
}

func (b *Bridge) PublishState(state, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.State = state
	b.snap.SessionID = sessionID
	b.snap.UpdatedAt = time.Now()
}

func (b *Bridge) PublishPartial(text string, seq int, isFinal bool, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.PartialText = text
	b.snap.Seq = seq
	b.snap.IsFinal = isFinal
	b.snap.SessionID = sessionID
	b.snap.UpdatedAt = time.Now()
}

// Clear resets everything except the retained event history.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.snap.Events
	b.snap = Snapshot{Events: events, UpdatedAt: time.Now()}
}

func (b *Bridge) Notify(event bridge.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Events = append(b.snap.Events, event)
	if len(b.snap.Events) > maxEvents {
		b.snap.Events = b.snap.Events[len(b.snap.Events)-maxEvents:]
	}
	b.snap.UpdatedAt = time.Now()
}

// Snapshot returns a copy of the current contents.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snap
	snap.Events = make([]bridge.Event, len(b.snap.Events))
	copy(snap.Events, b.snap.Events)
	return snap
}
