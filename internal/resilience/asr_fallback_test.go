package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	asrmock "github.com/voxd/voxd/pkg/provider/asr/mock"
	"github.com/voxd/voxd/pkg/types"
)

func testChunk() audio.Chunk {
	return audio.Chunk{Data: []byte{0, 0, 0, 0}, Format: audio.FormatPCM16Mono}
}

func TestASRFallback_StartStreaming_PrimarySuccess(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	secondary := asrmock.NewProvider("secondary")

	fb := NewASRFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	stream, err := fb.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream == nil {
		t.Fatal("stream is nil")
	}
	if len(primary.StartCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.StartCalls))
	}
	if len(secondary.StartCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.StartCalls))
	}
	if _, err := fb.StopStreaming(context.Background()); err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
}

func TestASRFallback_StartStreaming_Failover(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	primary.StartErr = errors.New("primary down")
	secondary := asrmock.NewProvider("secondary")

	fb := NewASRFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	stream, err := fb.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream == nil {
		t.Fatal("stream is nil")
	}
	if len(secondary.StartCalls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.StartCalls))
	}

	// The session is pinned to the backend that accepted it.
	if err := fb.FeedAudio(testChunk()); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}
	if len(secondary.FeedCalls) != 1 {
		t.Errorf("secondary feed calls = %d, want 1", len(secondary.FeedCalls))
	}
	if _, err := fb.StopStreaming(context.Background()); err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if secondary.StopCallCount != 1 {
		t.Errorf("secondary stop calls = %d, want 1", secondary.StopCallCount)
	}
	if primary.StopCallCount != 0 {
		t.Errorf("primary stop calls = %d, want 0", primary.StopCallCount)
	}
}

func TestASRFallback_StartStreaming_SkipsBatchOnlyBackend(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	primary.StartErr = errors.New("primary down")
	batchOnly := asrmock.NewProvider("batch-only")
	batchOnly.Streaming = false
	streaming := asrmock.NewProvider("streaming")

	fb := NewASRFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(batchOnly)
	fb.AddFallback(streaming)

	stream, err := fb.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream == nil {
		t.Fatal("stream is nil")
	}

	// The batch-only backend cannot serve a streaming session; the session
	// must land on the next streaming-capable one.
	if len(batchOnly.StartCalls) != 0 {
		t.Errorf("batch-only backend called %d times, want 0", len(batchOnly.StartCalls))
	}
	if len(streaming.StartCalls) != 1 {
		t.Errorf("streaming backend called %d times, want 1", len(streaming.StartCalls))
	}
	if err := fb.FeedAudio(testChunk()); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}
	if len(streaming.FeedCalls) != 1 {
		t.Errorf("streaming backend feed calls = %d, want 1", len(streaming.FeedCalls))
	}
}

func TestASRFallback_StartStreaming_AllFail(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	primary.StartErr = errors.New("primary down")
	secondary := asrmock.NewProvider("secondary")
	secondary.StartErr = errors.New("secondary down")

	fb := NewASRFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	_, err := fb.StartStreaming(context.Background(), asr.StreamConfig{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestASRFallback_Transcribe_Failover(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	primary.TranscribeErr = errors.New("primary down")
	secondary := asrmock.NewProvider("secondary")
	secondary.TranscribeResult = &types.TranscriptionResult{Text: "hello", IsFinal: true}

	fb := NewASRFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	res, err := fb.Transcribe(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "hello" {
		t.Errorf("Text = %q, want %q", res.Text, "hello")
	}
}

func TestASRFallback_NoSession(t *testing.T) {
	fb := NewASRFallback(asrmock.NewProvider("primary"), FallbackConfig{})

	if !errors.Is(fb.FeedAudio(testChunk()), asr.ErrNotStreaming) {
		t.Error("FeedAudio without session should return ErrNotStreaming")
	}
	if _, err := fb.StopStreaming(context.Background()); !errors.Is(err, asr.ErrNotStreaming) {
		t.Error("StopStreaming without session should return ErrNotStreaming")
	}
}

func TestASRFallback_IsAvailable(t *testing.T) {
	primary := asrmock.NewProvider("primary")
	primary.Available = false
	secondary := asrmock.NewProvider("secondary")

	fb := NewASRFallback(primary, FallbackConfig{})
	fb.AddFallback(secondary)

	if !fb.IsAvailable(context.Background()) {
		t.Error("group with one available backend should be available")
	}

	secondary.Available = false
	if fb.IsAvailable(context.Background()) {
		t.Error("group with no available backends should be unavailable")
	}
}
