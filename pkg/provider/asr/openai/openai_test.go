package openai_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/provider/asr/openai"
)

func newTranscriptionServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"` + text + `"}`))
	}))
}

func speechChunk() audio.Chunk {
	data := make([]byte, 32000) // 1s of 16 kHz mono PCM
	return audio.Chunk{Data: data, Format: audio.FormatPCM16Mono, Duration: audio.PCMDuration(len(data), audio.FormatPCM16Mono)}
}

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := openai.New("", "")
	if !errors.Is(err, asr.ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestProvider_IsBatchOnly(t *testing.T) {
	p, err := openai.New("key", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.SupportsStreaming() {
		t.Error("OpenAI transcription is batch-only")
	}
	if !p.RequiresNetwork() {
		t.Error("should require network")
	}
	// Missing streaming support is a capability, not an error: an
	// already-ended stream and a nil stop result.
	stream, err := p.StartStreaming(context.Background(), asr.StreamConfig{})
	if err != nil {
		t.Fatalf("StartStreaming err = %v, want nil", err)
	}
	if _, ok := <-stream.Results(); ok {
		t.Error("StartStreaming should return an already-closed stream")
	}
	if err := p.FeedAudio(speechChunk()); !errors.Is(err, asr.ErrNotStreaming) {
		t.Errorf("FeedAudio err = %v, want ErrNotStreaming", err)
	}
	res, err := p.StopStreaming(context.Background())
	if err != nil {
		t.Errorf("StopStreaming err = %v, want nil", err)
	}
	if res != nil {
		t.Errorf("StopStreaming result = %+v, want nil", res)
	}
}

func TestTranscribe_EmptyChunk(t *testing.T) {
	p, _ := openai.New("key", "")
	_, err := p.Transcribe(context.Background(), audio.Chunk{})
	if !errors.Is(err, asr.ErrNoAudioData) {
		t.Fatalf("err = %v, want ErrNoAudioData", err)
	}
}

func TestTranscribe_ReturnsFinalResult(t *testing.T) {
	srv := newTranscriptionServer(t, "hello from openai")
	defer srv.Close()

	p, err := openai.New("key", "", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), speechChunk())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello from openai" {
		t.Errorf("Text = %q", res.Text)
	}
	if !res.IsFinal {
		t.Error("batch result must be final")
	}
}
