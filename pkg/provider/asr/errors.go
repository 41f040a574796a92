package asr

import "errors"

// Sentinel errors returned by Provider implementations. Callers match with
// errors.Is; providers wrap them with backend detail.
var (
	// ErrStreamingNotSupported marks a demand for a live streaming session
	// from a batch-only provider. Providers themselves treat missing
	// streaming as a capability, not an error; failover groups use this
	// sentinel to skip past backends that cannot serve the session.
	ErrStreamingNotSupported = errors.New("asr: streaming not supported")

	// ErrNotStreaming is returned by FeedAudio and StopStreaming when no
	// streaming session is open.
	ErrNotStreaming = errors.New("asr: no streaming session active")

	// ErrSessionActive is returned by StartStreaming when a session is
	// already open on this provider instance.
	ErrSessionActive = errors.New("asr: streaming session already active")

	// ErrProviderUnavailable indicates the backend is unreachable or not
	// ready (model missing, server down).
	ErrProviderUnavailable = errors.New("asr: provider unavailable")

	// ErrAPIKeyMissing indicates a cloud provider was configured without
	// credentials.
	ErrAPIKeyMissing = errors.New("asr: API key missing")

	// ErrNoAudioData is returned by Transcribe for an empty chunk.
	ErrNoAudioData = errors.New("asr: no audio data")
)
