package whisper_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/provider/asr/whisper"
)

// ---- helpers ----------------------------------------------------------------

// newMockServer creates a test server that responds to POST /inference with a
// JSON body containing the provided responseText. It increments *callCount on
// every matched request.
func newMockServer(t *testing.T, responseText string, callCount *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if callCount != nil {
			callCount.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
}

// makeSpeechChunk generates a sine-wave PCM chunk at 440 Hz whose RMS is well
// above the silence threshold. The chunk contains `samples` 16-bit samples.
func makeSpeechChunk(samples int) audio.Chunk {
	const amplitude = 10_000.0 // RMS ≈ 7071, well above 300
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return audio.Chunk{Data: buf, Format: audio.FormatPCM16Mono, Duration: audio.PCMDuration(len(buf), audio.FormatPCM16Mono)}
}

// makeSilenceChunk generates a zero-valued PCM chunk (RMS = 0).
func makeSilenceChunk(samples int) audio.Chunk {
	buf := make([]byte, samples*2)
	return audio.Chunk{Data: buf, Format: audio.FormatPCM16Mono, Duration: audio.PCMDuration(len(buf), audio.FormatPCM16Mono)}
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := whisper.New("http://localhost:8080",
		whisper.WithModel("small"),
		whisper.WithLanguage("zh"),
		whisper.WithSampleRate(16000),
		whisper.WithSilenceThresholdMs(300),
		whisper.WithMaxBufferDurationMs(5000),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

func TestProvider_Identity(t *testing.T) {
	p, _ := whisper.New("http://localhost:8080")
	if p.ID() != "whisper-server" {
		t.Errorf("ID = %q", p.ID())
	}
	if !p.SupportsStreaming() {
		t.Error("whisper-server should support pseudo-streaming")
	}
	if p.RequiresNetwork() {
		t.Error("local server should not require network")
	}
}

// ---- availability -----------------------------------------------------------

func TestIsAvailable_ServerUp(t *testing.T) {
	srv := newMockServer(t, "", nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if !p.IsAvailable(context.Background()) {
		t.Error("expected available with server up")
	}
}

func TestIsAvailable_ServerDown(t *testing.T) {
	srv := newMockServer(t, "", nil)
	url := srv.URL
	srv.Close()

	p, _ := whisper.New(url)
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable with server down")
	}
}

// ---- batch transcription ----------------------------------------------------

func TestTranscribe_EmptyChunk_ReturnsErrNoAudioData(t *testing.T) {
	p, _ := whisper.New("http://localhost:8080")
	_, err := p.Transcribe(context.Background(), audio.Chunk{})
	if !errors.Is(err, asr.ErrNoAudioData) {
		t.Fatalf("err = %v, want ErrNoAudioData", err)
	}
}

func TestTranscribe_ReturnsFinalResult(t *testing.T) {
	srv := newMockServer(t, "hello world", nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	res, err := p.Transcribe(context.Background(), makeSpeechChunk(16000))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q", res.Text)
	}
	if !res.IsFinal {
		t.Error("batch result must be final")
	}
}

func TestTranscribe_ServerError_Wrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	_, err := p.Transcribe(context.Background(), makeSpeechChunk(16000))
	if !errors.Is(err, asr.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

// ---- streaming --------------------------------------------------------------

func TestStreaming_SilenceTriggeredFlush_PublishesInterim(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, "segment one", &calls)
	defer srv.Close()

	p, _ := whisper.New(srv.URL, whisper.WithSilenceThresholdMs(100))
	stream, err := p.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}

	// 0.5s speech then enough silence to cross the 100ms threshold.
	if err := p.FeedAudio(makeSpeechChunk(8000)); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}
	if err := p.FeedAudio(makeSilenceChunk(4800)); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}

	select {
	case res := <-stream.Results():
		if res.IsFinal {
			t.Error("segment flush should publish an interim result")
		}
		if res.Text != "segment one" {
			t.Errorf("Text = %q", res.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for interim result")
	}

	final, err := p.StopStreaming(context.Background())
	if err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if final == nil || final.Text != "segment one" {
		t.Fatalf("final = %+v", final)
	}
	if !final.IsFinal {
		t.Error("stop result must be final")
	}
}

func TestStreaming_StopFlushesPendingSpeech(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, "tail text", &calls)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono}); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	if err := p.FeedAudio(makeSpeechChunk(8000)); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}

	final, err := p.StopStreaming(context.Background())
	if err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if final == nil || final.Text != "tail text" {
		t.Fatalf("final = %+v", final)
	}
	if calls.Load() != 1 {
		t.Errorf("inference calls = %d, want 1", calls.Load())
	}
}

func TestStreaming_NoSpeech_StopReturnsNil(t *testing.T) {
	srv := newMockServer(t, "should not appear", nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono}); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	if err := p.FeedAudio(makeSilenceChunk(16000)); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}

	final, err := p.StopStreaming(context.Background())
	if err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if final != nil {
		t.Fatalf("expected nil final for silence-only session, got %+v", final)
	}
}

func TestStreaming_SecondStartReturnsErrSessionActive(t *testing.T) {
	srv := newMockServer(t, "", nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.StartStreaming(context.Background(), asr.StreamConfig{}); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	defer p.StopStreaming(context.Background())

	if _, err := p.StartStreaming(context.Background(), asr.StreamConfig{}); !errors.Is(err, asr.ErrSessionActive) {
		t.Fatalf("err = %v, want ErrSessionActive", err)
	}
}

func TestFeedAudio_WithoutSession_ReturnsErrNotStreaming(t *testing.T) {
	p, _ := whisper.New("http://localhost:8080")
	if err := p.FeedAudio(makeSpeechChunk(100)); !errors.Is(err, asr.ErrNotStreaming) {
		t.Fatalf("err = %v, want ErrNotStreaming", err)
	}
}

func TestStopStreaming_WithoutSession_ReturnsErrNotStreaming(t *testing.T) {
	p, _ := whisper.New("http://localhost:8080")
	if _, err := p.StopStreaming(context.Background()); !errors.Is(err, asr.ErrNotStreaming) {
		t.Fatalf("err = %v, want ErrNotStreaming", err)
	}
}
