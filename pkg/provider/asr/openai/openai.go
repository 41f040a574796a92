// Package openai provides a transcription provider backed by the OpenAI
// audio transcription API (whisper-1 and the gpt-4o transcribe family).
//
// The API is batch-only: the complete utterance is uploaded as a WAV file at
// stop time. The orchestrator detects SupportsStreaming() == false and
// buffers audio accordingly, so no pseudo-streaming shim is needed here.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = "whisper-1"

// Ensure Provider implements the asr.Provider interface.
var _ asr.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL  string
	language string
	timeout  time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, e.g. to point at an
// API-compatible proxy or a test server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithLanguage sets the ISO-639-1 language hint sent with every request.
// Empty (the default) lets the model auto-detect.
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements asr.Provider using the OpenAI transcription API.
type Provider struct {
	client   oai.Client
	model    string
	language string
	hasKey   bool
}

// New constructs a new OpenAI transcription Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai asr: %w", asr.ErrAPIKeyMissing)
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:   oai.NewClient(reqOpts...),
		model:    model,
		language: cfg.language,
		hasKey:   true,
	}, nil
}

func (p *Provider) ID() string { return "openai" }

func (p *Provider) DisplayName() string { return "OpenAI Transcription" }

func (p *Provider) SupportsStreaming() bool { return false }

func (p *Provider) RequiresNetwork() bool { return true }

// Languages returns nil: whisper-family models auto-detect language.
func (p *Provider) Languages() []string { return nil }

// IsAvailable reports whether credentials are configured.
func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.hasKey
}

// Transcribe uploads the utterance as a WAV file and returns the final
// result.
func (p *Provider) Transcribe(ctx context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	if len(chunk.Data) == 0 {
		return nil, asr.ErrNoAudioData
	}

	params := oai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  bytes.NewReader(audio.EncodeWAV(chunk)),
	}
	if p.language != "" {
		params.Language = param.NewOpt(p.language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai asr: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	return &types.TranscriptionResult{
		Text:      text,
		Language:  types.DetectLanguage(text),
		IsFinal:   true,
		Timestamp: chunk.Timestamp,
	}, nil
}

// StartStreaming returns an already-ended stream: the OpenAI transcription
// API is batch-only, and lacking streaming is a capability, not a failure.
func (p *Provider) StartStreaming(_ context.Context, _ asr.StreamConfig) (*asr.Stream, error) {
	return asr.ClosedStream(), nil
}

// FeedAudio always fails: no streaming session can exist.
func (p *Provider) FeedAudio(_ audio.Chunk) error {
	return fmt.Errorf("openai asr: %w", asr.ErrNotStreaming)
}

// StopStreaming reports no streaming result; batch callers get their final
// from Transcribe.
func (p *Provider) StopStreaming(_ context.Context) (*types.TranscriptionResult, error) {
	return nil, nil
}
