// Package mock provides a test double for the asr.Provider interface.
//
// Use Provider in unit tests to drive the orchestrator without a live
// transcription backend: configure the streaming or batch responses up front,
// publish results on the live stream with PublishResult, and inspect the
// recorded calls afterwards.
//
// Example:
//
//	p := mock.NewProvider("test")
//	p.StopResult = &types.TranscriptionResult{Text: "hello world", IsFinal: true}
package mock

import (
	"context"
	"sync"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

// Provider is a mock implementation of asr.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject failures.
type Provider struct {
	mu sync.Mutex

	// --- Configurable behaviour ---

	// ProviderID is returned by ID. Set via NewProvider.
	ProviderID string

	// Streaming is returned by SupportsStreaming.
	Streaming bool

	// Network is returned by RequiresNetwork.
	Network bool

	// Available is returned by IsAvailable.
	Available bool

	// TranscribeResult is returned by Transcribe. May be nil.
	TranscribeResult *types.TranscriptionResult

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// StartErr, if non-nil, is returned as the error from StartStreaming.
	StartErr error

	// FeedErr, if non-nil, is returned from FeedAudio.
	FeedErr error

	// StopResult is returned by StopStreaming. May be nil.
	StopResult *types.TranscriptionResult

	// StopErr, if non-nil, is returned as the error from StopStreaming.
	StopErr error

	// --- Call records (read after test) ---

	// TranscribeCalls records the chunks passed to Transcribe in order.
	TranscribeCalls []audio.Chunk

	// StartCalls records the configs passed to StartStreaming in order.
	StartCalls []asr.StreamConfig

	// FeedCalls records the chunks passed to FeedAudio in order.
	FeedCalls []audio.Chunk

	// StopCallCount is the number of times StopStreaming was called.
	StopCallCount int

	stream *asr.Stream
}

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// NewProvider returns an available streaming mock with the given ID.
func NewProvider(id string) *Provider {
	return &Provider{ProviderID: id, Streaming: true, Available: true}
}

func (p *Provider) ID() string { return p.ProviderID }

func (p *Provider) DisplayName() string { return "Mock (" + p.ProviderID + ")" }

func (p *Provider) SupportsStreaming() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Streaming
}

func (p *Provider) RequiresNetwork() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Network
}

func (p *Provider) Languages() []string { return nil }

func (p *Provider) IsAvailable(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Available
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(_ context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, chunk)
	if p.TranscribeErr != nil {
		return nil, p.TranscribeErr
	}
	return p.TranscribeResult, nil
}

// StartStreaming records the call and opens a live stream. Use PublishResult
// to emit results on it.
func (p *Provider) StartStreaming(_ context.Context, cfg asr.StreamConfig) (*asr.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartCalls = append(p.StartCalls, cfg)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if !p.Streaming {
		// Batch-only providers hand back an already-ended stream.
		return asr.ClosedStream(), nil
	}
	if p.stream != nil {
		return nil, asr.ErrSessionActive
	}
	p.stream = asr.NewStream(16)
	return p.stream, nil
}

func (p *Provider) FeedAudio(chunk audio.Chunk) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FeedErr != nil {
		return p.FeedErr
	}
	if p.stream == nil {
		return asr.ErrNotStreaming
	}
	p.FeedCalls = append(p.FeedCalls, chunk)
	return nil
}

// StopStreaming closes the open stream and returns the configured StopResult.
func (p *Provider) StopStreaming(_ context.Context) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StopCallCount++
	if p.stream == nil {
		return nil, asr.ErrNotStreaming
	}
	p.stream.Close()
	p.stream = nil
	if p.StopErr != nil {
		return nil, p.StopErr
	}
	return p.StopResult, nil
}

// PublishResult emits a result on the open stream. Panics if no session is
// open; tests must call StartStreaming first.
func (p *Provider) PublishResult(res types.TranscriptionResult) {
	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	if stream == nil {
		panic("mock: PublishResult without an open streaming session")
	}
	stream.Publish(res)
}

// FeedCount returns how many chunks were accepted by FeedAudio.
func (p *Provider) FeedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.FeedCalls)
}

// StreamOpen reports whether a streaming session is currently open.
func (p *Provider) StreamOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}
