// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

// Compile-time assertion that NativeProvider satisfies asr.Provider.
var _ asr.Provider = (*NativeProvider)(nil)

// NativeProvider implements asr.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across sessions; each inference creates its own
// whisper context because contexts are not thread-safe.
type NativeProvider struct {
	model    whisperlib.Model
	language string

	// Same silence-detection parameters as the HTTP provider.
	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int

	mu      sync.Mutex
	session *session
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "zh"). Empty (the default) auto-detects.
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeSampleRate sets the audio sample rate in Hz. Defaults to 16000.
func WithNativeSampleRate(rate int) NativeOption {
	return func(p *NativeProvider) { p.sampleRate = rate }
}

// WithNativeSilenceThresholdMs sets the consecutive-silence duration (ms)
// that triggers a flush of the accumulated speech buffer. Defaults to 500 ms.
func WithNativeSilenceThresholdMs(ms int) NativeOption {
	return func(p *NativeProvider) { p.silenceThresholdMs = ms }
}

// WithNativeMaxBufferDurationMs sets the maximum buffered audio duration
// (ms) before a forced flush. Defaults to 10 000 ms (10 s).
func WithNativeMaxBufferDurationMs(ms int) NativeOption {
	return func(p *NativeProvider) { p.maxBufferDurationMs = ms }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:               model,
		language:            defaultLanguage,
		sampleRate:          defaultSampleRate,
		silenceThresholdMs:  defaultSilenceThresholdMs,
		maxBufferDurationMs: defaultMaxBufferDurationMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

func (p *NativeProvider) ID() string { return "whisper-native" }

func (p *NativeProvider) DisplayName() string { return "Whisper (native)" }

func (p *NativeProvider) SupportsStreaming() bool { return true }

func (p *NativeProvider) RequiresNetwork() bool { return false }

func (p *NativeProvider) Languages() []string { return nil }

// IsAvailable reports whether the model is loaded.
func (p *NativeProvider) IsAvailable(_ context.Context) bool {
	return p.model != nil
}

// Transcribe performs batch recognition of a complete utterance.
func (p *NativeProvider) Transcribe(_ context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	if len(chunk.Data) == 0 {
		return nil, asr.ErrNoAudioData
	}
	text, err := p.infer(chunk.Data, chunk.Format, p.language)
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
func (p *NativeProvider) StartStreaming(ctx context.Context, cfg asr.StreamConfig) (*asr.Stream, error) {
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
		infer: func(_ context.Context, pcm []byte, f audio.Format) (string, error) {
			return p.infer(pcm, f, lang)
		},
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
func (p *NativeProvider) FeedAudio(chunk audio.Chunk) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return asr.ErrNotStreaming
	}
	return s.sendAudio(chunk.Data)
}

// StopStreaming flushes buffered speech, closes the stream, and returns the
// accumulated session text as the final result.
func (p *NativeProvider) StopStreaming(_ context.Context) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s == nil {
		return nil, asr.ErrNotStreaming
	}
	return s.close(), nil
}

// infer converts PCM to float32, runs whisper.cpp inference on a fresh
// context, and returns the concatenated segment text.
func (p *NativeProvider) infer(pcm []byte, format audio.Format, lang string) (string, error) {
	samples := pcmToFloat32Mono(pcm, format.Channels)

	// Contexts are not thread-safe; create one per inference. The shared
	// model is safe across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
