// Package whisper provides local whisper.cpp-backed transcription providers.
//
// Two implementations share the same segmentation logic: [Provider] talks to
// a running whisper-server binary over its REST API (POST /inference), and
// [NativeProvider] links whisper.cpp directly via CGO bindings.
//
// whisper.cpp is a batch engine, so streaming is simulated: incoming PCM is
// buffered, an energy-based silence detector segments utterances, and each
// completed segment is transcribed and published as an interim result
// carrying the accumulated session text. StopStreaming flushes the remaining
// buffer and returns the full utterance as the final result.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("zh"),
//	    whisper.WithSilenceThresholdMs(500),
//	)
//	stream, err := p.StartStreaming(ctx, cfg)
//	p.FeedAudio(chunk)
//	final, err := p.StopStreaming(ctx)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which audio is considered silent. The maximum possible
	// value for 16-bit audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage            = ""
	defaultSampleRate          = 16000
	defaultSilenceThresholdMs  = 500
	defaultMaxBufferDurationMs = 10_000
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the BCP-47 language code sent to the whisper-server
// (e.g., "en", "zh"). Empty (the default) lets the server auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the expected audio sample rate in Hz, used to calculate
// buffer durations and silence windows. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (in
// milliseconds) that triggers a flush of the accumulated speech buffer.
// Shorter values produce more responsive interim results at the cost of
// potentially splitting utterances. Defaults to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(p *Provider) { p.silenceThresholdMs = ms }
}

// WithMaxBufferDurationMs sets the maximum duration of audio (in
// milliseconds) that may accumulate before a flush is forced regardless of
// silence. This prevents unbounded memory growth during continuous speech.
// Defaults to 10 000 ms (10 s).
func WithMaxBufferDurationMs(ms int) Option {
	return func(p *Provider) { p.maxBufferDurationMs = ms }
}

// WithHTTPClient replaces the HTTP client, e.g. to tighten timeouts in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements asr.Provider backed by a whisper-server HTTP endpoint.
// One streaming session may be open at a time.
type Provider struct {
	serverURL           string
	model               string
	language            string
	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int
	httpClient          *http.Client

	mu      sync.Mutex
	session *session
}

// New creates a new Provider that connects to the whisper-server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:           serverURL,
		language:            defaultLanguage,
		sampleRate:          defaultSampleRate,
		silenceThresholdMs:  defaultSilenceThresholdMs,
		maxBufferDurationMs: defaultMaxBufferDurationMs,
		httpClient:          &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) ID() string { return "whisper-server" }

func (p *Provider) DisplayName() string { return "Whisper (local server)" }

func (p *Provider) SupportsStreaming() bool { return true }

func (p *Provider) RequiresNetwork() bool { return false }

// Languages returns nil: whisper models auto-detect language.
func (p *Provider) Languages() []string { return nil }

// IsAvailable probes the server with a short GET. Any HTTP response counts as
// available; only a transport failure means the server is down.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.serverURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Transcribe performs batch recognition of a complete utterance.
func (p *Provider) Transcribe(ctx context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	if len(chunk.Data) == 0 {
		return nil, asr.ErrNoAudioData
	}
	text, err := p.infer(ctx, chunk.Data, chunk.Format)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	return &types.TranscriptionResult{
		Text:      text,
		Language:  types.DetectLanguage(text),
		IsFinal:   true,
		Timestamp: chunk.Timestamp,
	}, nil
}

// StartStreaming opens a silence-segmented pseudo-streaming session.
func (p *Provider) StartStreaming(ctx context.Context, cfg asr.StreamConfig) (*asr.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return nil, asr.ErrSessionActive
	}

	format := cfg.Format
	if format.SampleRate <= 0 {
		format = audio.FormatPCM16Mono
		format.SampleRate = p.sampleRate
	}
	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}

	s := &session{
		infer:               p.inferFn(lang),
		format:              format,
		silenceThresholdMs:  p.silenceThresholdMs,
		maxBufferDurationMs: p.maxBufferDurationMs,
		audioCh:             make(chan []byte, 256),
		stream:              asr.NewStream(64),
		done:                make(chan struct{}),
	}
	p.session = s

	s.wg.Add(1)
	go s.processLoop(context.WithoutCancel(ctx))

	return s.stream, nil
}

// FeedAudio queues a chunk for silence analysis and buffering.
func (p *Provider) FeedAudio(chunk audio.Chunk) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return asr.ErrNotStreaming
	}
	return s.sendAudio(chunk.Data)
}

// StopStreaming flushes any buffered speech for a last inference, closes the
// stream, and returns the accumulated session text as the final result.
// Returns nil when the session produced no speech.
func (p *Provider) StopStreaming(_ context.Context) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s == nil {
		return nil, asr.ErrNotStreaming
	}
	return s.close(), nil
}

// inferFn binds a language to the provider's HTTP inference call so the
// session loop stays transport-agnostic (the native provider supplies its
// own).
func (p *Provider) inferFn(lang string) inferFunc {
	return func(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
		return p.inferWithLanguage(ctx, pcm, format, lang)
	}
}

// infer encodes pcm as WAV and POSTs it to the whisper-server /inference
// endpoint as multipart/form-data.
func (p *Provider) infer(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	return p.inferWithLanguage(ctx, pcm, format, p.language)
}

func (p *Provider) inferWithLanguage(ctx context.Context, pcm []byte, format audio.Format, lang string) (string, error) {
	wav := encodeWAV(pcm, format.SampleRate, format.Channels)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d: %w", resp.StatusCode, asr.ErrProviderUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.Text, nil
}
