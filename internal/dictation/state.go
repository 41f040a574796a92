package dictation

// State is the dictation session state published to the bridge.
type State string

const (
	// StateIdle means no session is active. The audio source may still be
	// warm in its idle tap.
	StateIdle State = "idle"

	// StateRecording means audio is flowing into the active provider.
	StateRecording State = "recording"

	// StateTranscribing means a provider-marked final result has been seen
	// but stop has not been called yet.
	StateTranscribing State = "transcribing"

	// StateFinalizing means stop is in progress: flushing the provider,
	// running correction, and publishing the final text.
	StateFinalizing State = "finalizing"

	// StateError means the last start attempt failed. Auto-reverts to idle
	// unless superseded by a new start.
	StateError State = "error"
)

// Active reports whether a session is currently capturing or transcribing.
func (s State) Active() bool {
	return s == StateRecording || s == StateTranscribing
}
