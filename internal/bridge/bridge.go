// Package bridge defines the outbound surface towards the overlay process:
// the component that renders recording state and live partial text to the
// user. The orchestrator publishes every state change and every partial
// result here; how the data leaves the process (unix socket, D-Bus, stdout)
// is an implementation concern of the concrete Bridge.
package bridge

import "time"

// Event is an out-of-band notification for the overlay, such as a provider
// failover or a recognition error the user should see.
type Event struct {
	// Kind classifies the event, e.g. "error", "provider_switch", "recovered".
	Kind string

	// Message is the human-readable text to display.
	Message string

	// Timestamp marks when the event was raised.
	Timestamp time.Time
}

// Bridge receives dictation state updates for display.
//
// Implementations must be safe for concurrent use and must never block the
// caller: publishing happens on the orchestrator's hot path.
type Bridge interface {
	// PublishState announces a session state transition. state is the
	// lowercase state name ("idle", "recording", ...); sessionID identifies
	// the session, empty when idle.
	PublishState(state, sessionID string)

	// PublishPartial delivers interim (or final) recognized text. seq
	// increments once per non-empty partial within a session so the overlay
	// can discard out-of-order updates.
	PublishPartial(text string, seq int, isFinal bool, sessionID string)

	// Clear removes all displayed state, returning the overlay to blank.
	Clear()

	// Notify raises an out-of-band event.
	Notify(event Event)
}

// Nop is a Bridge that discards everything. Useful as a default when no
// overlay is configured.
type Nop struct{}

var _ Bridge = Nop{}

func (Nop) PublishState(string, string)              {}
func (Nop) PublishPartial(string, int, bool, string) {}
func (Nop) Clear()                                   {}
func (Nop) Notify(Event)                             {}
