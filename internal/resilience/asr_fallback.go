package resilience

import (
	"context"
	"sync"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

// ASRFallback implements [asr.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own circuit breaker.
//
// Streaming sessions are sticky: the backend that accepted StartStreaming owns
// the session, and FeedAudio/StopStreaming go to it directly. Failover only
// happens at session boundaries, never mid-utterance.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]

	mu     sync.Mutex
	active asr.Provider // backend owning the open streaming session, or nil
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
func NewASRFallback(primary asr.Provider, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primary.ID(), cfg),
	}
}

// AddFallback registers an additional ASR provider as a fallback.
func (f *ASRFallback) AddFallback(provider asr.Provider) {
	f.group.AddFallback(provider.ID(), provider)
}

// ID returns the primary backend's identifier.
func (f *ASRFallback) ID() string { return f.group.Primary().ID() }

// DisplayName returns the primary backend's display name.
func (f *ASRFallback) DisplayName() string { return f.group.Primary().DisplayName() }

// SupportsStreaming reports the primary backend's streaming capability. All
// backends in a group should share the same mode; the orchestrator decides
// streaming versus batch once per session.
func (f *ASRFallback) SupportsStreaming() bool { return f.group.Primary().SupportsStreaming() }

// RequiresNetwork reports whether the primary backend needs connectivity.
func (f *ASRFallback) RequiresNetwork() bool { return f.group.Primary().RequiresNetwork() }

// Languages returns the primary backend's language list.
func (f *ASRFallback) Languages() []string { return f.group.Primary().Languages() }

// IsAvailable reports whether any backend in the group is available.
func (f *ASRFallback) IsAvailable(ctx context.Context) bool {
	for i := range f.group.entries {
		if f.group.entries[i].value.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

// Transcribe performs batch recognition against the first healthy backend.
func (f *ASRFallback) Transcribe(ctx context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (*types.TranscriptionResult, error) {
		return p.Transcribe(ctx, chunk)
	})
}

// StartStreaming opens a streaming session against the first healthy
// streaming-capable backend and pins the session to it. Batch-only backends
// are skipped: accepting a streaming session they cannot serve would lose the
// utterance's partial results.
func (f *ASRFallback) StartStreaming(ctx context.Context, cfg asr.StreamConfig) (*asr.Stream, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (*asr.Stream, error) {
		if !p.SupportsStreaming() {
			return nil, asr.ErrStreamingNotSupported
		}
		stream, err := p.StartStreaming(ctx, cfg)
		if err == nil {
			f.mu.Lock()
			f.active = p
			f.mu.Unlock()
		}
		return stream, err
	})
}

// FeedAudio delivers one chunk to the backend owning the open session.
func (f *ASRFallback) FeedAudio(chunk audio.Chunk) error {
	f.mu.Lock()
	active := f.active
	f.mu.Unlock()
	if active == nil {
		return asr.ErrNotStreaming
	}
	return active.FeedAudio(chunk)
}

// StopStreaming closes the open session on its owning backend.
func (f *ASRFallback) StopStreaming(ctx context.Context) (*types.TranscriptionResult, error) {
	f.mu.Lock()
	active := f.active
	f.active = nil
	f.mu.Unlock()
	if active == nil {
		return nil, asr.ErrNotStreaming
	}
	return active.StopStreaming(ctx)
}
