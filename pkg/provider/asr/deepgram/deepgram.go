// Package deepgram provides a Deepgram-backed transcription provider using
// the Deepgram streaming WebSocket API. It implements the asr.Provider
// interface.
//
// Deepgram is the only true streaming backend: interim hypotheses arrive with
// word-level confidence while the speaker is still talking. Segment finals
// are accumulated across the session, so every published result carries the
// full utterance text so far rather than an isolated fragment.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en",
// "zh"). Empty (the default) enables Deepgram's language detection.
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = language }
}

// WithEndpoint overrides the WebSocket endpoint, e.g. to point at a test
// server.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// Provider implements asr.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string

	mu      sync.Mutex
	session *session
}

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: %w", asr.ErrAPIKeyMissing)
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) ID() string { return "deepgram" }

func (p *Provider) DisplayName() string { return "Deepgram" }

func (p *Provider) SupportsStreaming() bool { return true }

func (p *Provider) RequiresNetwork() bool { return true }

// Languages returns nil: Deepgram nova models detect language server-side.
func (p *Provider) Languages() []string { return nil }

// IsAvailable reports whether credentials are configured. Reachability is
// only knowable at dial time; a failed dial surfaces through StartStreaming.
func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.apiKey != ""
}

// Transcribe is implemented on top of the streaming API: the chunk is fed
// through a short-lived session and the stop result returned.
func (p *Provider) Transcribe(ctx context.Context, chunk audio.Chunk) (*types.TranscriptionResult, error) {
	if len(chunk.Data) == 0 {
		return nil, asr.ErrNoAudioData
	}
	if _, err := p.StartStreaming(ctx, asr.StreamConfig{Format: chunk.Format}); err != nil {
		return nil, err
	}
	if err := p.FeedAudio(chunk); err != nil {
		_, _ = p.StopStreaming(ctx)
		return nil, err
	}
	return p.StopStreaming(ctx)
}

// StartStreaming opens a streaming transcription session with Deepgram.
func (p *Provider) StartStreaming(ctx context.Context, cfg asr.StreamConfig) (*asr.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return nil, asr.ErrSessionActive
	}

	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", errors.Join(asr.ErrProviderUnavailable, err))
	}

	s := &session{
		conn:    conn,
		stream:  asr.NewStream(64),
		audio:   make(chan []byte, 256),
		done:    make(chan struct{}),
		started: time.Now(),
	}
	p.session = s

	loopCtx := context.WithoutCancel(ctx)
	s.wg.Add(2)
	go s.readLoop(loopCtx)
	go s.writeLoop(loopCtx)

	return s.stream, nil
}

// FeedAudio queues a PCM chunk for delivery to Deepgram.
func (p *Provider) FeedAudio(chunk audio.Chunk) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return asr.ErrNotStreaming
	}
	return s.sendAudio(chunk.Data)
}

// StopStreaming flushes pending audio with a CloseStream message, waits for
// trailing finals, and returns the accumulated utterance result.
func (p *Provider) StopStreaming(ctx context.Context) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s == nil {
		return nil, asr.ErrNotStreaming
	}
	return s.close(ctx), nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given
// config.
func (p *Provider) buildURL(cfg asr.StreamConfig) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.Format.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	if lang != "" {
		q.Set("language", lang)
	} else {
		q.Set("detect_language", "true")
	}
	q.Set("encoding", "linear16")
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Format.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Format.Channels))
	}
	for _, kw := range cfg.Keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results
// event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram streaming session.
type session struct {
	conn    *websocket.Conn
	stream  *asr.Stream
	audio   chan []byte
	started time.Time

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// accumulated utterance state, owned by readLoop until close has waited
	// for it to exit.
	mu          sync.Mutex
	segments    []string
	words       []types.WordConfidence
	lastPartial string
}

// sendAudio queues a PCM chunk for the write loop.
func (s *session) sendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session is closed")
	}
}

// close flushes the stream and returns the utterance result, or nil when the
// session produced no speech.
func (s *session) close(ctx context.Context) *types.TranscriptionResult {
	s.once.Do(func() {
		close(s.done)
		// Ask Deepgram to flush pending audio and emit trailing finals.
		_ = s.conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))

		// Wait for the trailing finals to arrive, bounded only by the
		// caller's ctx: losing the final transcript is worse than a slow
		// session end.
		waited := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			// Abandoning the wait forces the read loop off the connection;
			// it may still race a last Publish against the stream close.
			s.conn.Close(websocket.StatusGoingAway, "stop cancelled")
			<-waited
		}

		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.stream.Close()
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.TrimSpace(strings.Join(s.segments, " "))
	if text == "" {
		if strings.TrimSpace(s.lastPartial) == "" {
			return nil
		}
		// No segment final ever arrived; promote the last interim hypothesis.
		text = s.lastPartial
	}
	return &types.TranscriptionResult{
		Text:      text,
		Language:  types.DetectLanguage(text),
		IsFinal:   true,
		Words:     s.words,
		Timestamp: s.started,
	}
}

// writeLoop reads from the audio channel and sends binary messages to
// Deepgram.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain buffered audio before exiting so CloseStream flushes it.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram, accumulates segment finals,
// and publishes results on the stream.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		seg, ok := parseResponse(msg)
		if !ok {
			continue
		}

		s.mu.Lock()
		var text string
		if seg.IsFinal {
			if strings.TrimSpace(seg.Text) != "" {
				s.segments = append(s.segments, seg.Text)
				s.words = append(s.words, seg.Words...)
			}
			s.lastPartial = ""
			text = strings.Join(s.segments, " ")
		} else {
			s.lastPartial = seg.Text
			parts := append(append([]string{}, s.segments...), seg.Text)
			text = strings.Join(parts, " ")
		}
		s.mu.Unlock()

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		s.stream.Publish(types.TranscriptionResult{
			Text:      text,
			Language:  types.DetectLanguage(text),
			IsFinal:   seg.IsFinal,
			Words:     seg.Words,
			Timestamp: time.Now(),
		})
	}
}

// segment is one parsed Deepgram result.
type segment struct {
	Text    string
	IsFinal bool
	Words   []types.WordConfidence
}

// parseResponse parses a raw Deepgram WebSocket message. Returns
// (segment, true) on success, or (zero, false) if the message should be
// ignored.
func parseResponse(data []byte) (segment, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return segment{}, false
	}
	if resp.Type != "Results" {
		return segment{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return segment{}, false
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]types.WordConfidence, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, types.WordConfidence{
			Word:       w.Word,
			Confidence: w.Confidence,
		})
	}

	return segment{
		Text:    alt.Transcript,
		IsFinal: resp.IsFinal,
		Words:   words,
	}, true
}
