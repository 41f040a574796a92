package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
)

func assertEqual(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := asr.StreamConfig{Format: audio.FormatPCM16Mono, Language: "en"}
	rawURL, err := p.buildURL(cfg)
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "true", q.Get("interim_results"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURL_NoLanguage_EnablesDetection(t *testing.T) {
	p, _ := New("key")
	rawURL, err := p.buildURL(asr.StreamConfig{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(rawURL)
	q := u.Query()
	assertEqual(t, "detect_language", "true", q.Get("detect_language"))
	assertEqual(t, "language", "", q.Get("language"))
}

func TestBuildURL_ConfigLanguageOverridesDefault(t *testing.T) {
	p, _ := New("key", WithLanguage("en"))
	rawURL, err := p.buildURL(asr.StreamConfig{Language: "zh"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "zh", u.Query().Get("language"))
}

func TestBuildURL_Keywords(t *testing.T) {
	p, _ := New("key")
	rawURL, err := p.buildURL(asr.StreamConfig{Keywords: []string{"kubernetes", "pgvector"}})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(rawURL)
	kws := u.Query()["keywords"]
	if len(kws) != 2 || kws[0] != "kubernetes" || kws[1] != "pgvector" {
		t.Errorf("keywords = %v", kws)
	}
}

// ---- response parsing ----

func TestParseResponse_Final(t *testing.T) {
	msg := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "hello world",
				"confidence": 0.97,
				"words": [
					{"word": "hello", "confidence": 0.99},
					{"word": "world", "confidence": 0.95}
				]
			}]
		}
	}`)

	seg, ok := parseResponse(msg)
	if !ok {
		t.Fatal("expected a parsed segment")
	}
	if !seg.IsFinal {
		t.Error("expected final segment")
	}
	if seg.Text != "hello world" {
		t.Errorf("Text = %q", seg.Text)
	}
	if len(seg.Words) != 2 || seg.Words[0].Word != "hello" || seg.Words[1].Confidence != 0.95 {
		t.Errorf("Words = %+v", seg.Words)
	}
}

func TestParseResponse_Partial(t *testing.T) {
	msg := []byte(`{
		"type": "Results",
		"is_final": false,
		"channel": {"alternatives": [{"transcript": "hel", "confidence": 0.4}]}
	}`)

	seg, ok := parseResponse(msg)
	if !ok {
		t.Fatal("expected a parsed segment")
	}
	if seg.IsFinal {
		t.Error("expected partial segment")
	}
	if seg.Text != "hel" {
		t.Errorf("Text = %q", seg.Text)
	}
}

func TestParseResponse_Ignored(t *testing.T) {
	cases := map[string][]byte{
		"non-results type":   []byte(`{"type":"Metadata"}`),
		"empty alternatives": []byte(`{"type":"Results","channel":{"alternatives":[]}}`),
		"invalid json":       []byte(`{nope`),
	}
	for name, msg := range cases {
		if _, ok := parseResponse(msg); ok {
			t.Errorf("%s: expected message to be ignored", name)
		}
	}
}

// ---- construction ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, asr.ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestNew_Identity(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ID() != "deepgram" {
		t.Errorf("ID = %q", p.ID())
	}
	if !p.SupportsStreaming() || !p.RequiresNetwork() {
		t.Error("deepgram should stream and require network")
	}
	if !p.IsAvailable(t.Context()) {
		t.Error("expected available with key set")
	}
}

func TestFeedAudio_WithoutSession(t *testing.T) {
	p, _ := New("key")
	if err := p.FeedAudio(audio.Chunk{Data: []byte{0, 0}}); !errors.Is(err, asr.ErrNotStreaming) {
		t.Fatalf("err = %v, want ErrNotStreaming", err)
	}
}

// ---- stop-flush behaviour ----

func TestStopStreaming_AwaitsSlowFlush(t *testing.T) {
	finalMsg := `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"slow final","confidence":0.9,"words":[]}]}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageText && strings.Contains(string(data), "CloseStream") {
				// Emulate a backend that is slow to emit the trailing final.
				time.Sleep(150 * time.Millisecond)
				_ = conn.Write(ctx, websocket.MessageText, []byte(finalMsg))
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}))
	defer srv.Close()

	p, err := New("key", WithEndpoint("ws"+srv.URL[len("http"):]))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := p.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	if err := p.FeedAudio(audio.Chunk{Data: make([]byte, 640), Format: audio.FormatPCM16Mono}); err != nil {
		t.Fatalf("FeedAudio: %v", err)
	}

	res, err := p.StopStreaming(context.Background())
	if err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if res == nil || res.Text != "slow final" {
		t.Fatalf("result = %+v, want the flushed final", res)
	}

	// The stream must be closed once the stop flush completes.
	for range stream.Results() {
	}
}

func TestStopStreaming_CancelledContextStillCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		// Never answer CloseStream; the caller's ctx must bound the wait.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p, err := New("key", WithEndpoint("ws"+srv.URL[len("http"):]))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := p.StartStreaming(context.Background(), asr.StreamConfig{Format: audio.FormatPCM16Mono})
	if err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := p.StopStreaming(ctx)
	if err != nil {
		t.Fatalf("StopStreaming: %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil for a silent session", res)
	}
	for range stream.Results() {
	}
}
