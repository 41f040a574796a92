package whisper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/types"
)

// inferFunc runs one batch inference over a PCM segment. The HTTP and native
// providers plug in their own transport here; the session loop is shared.
type inferFunc func(ctx context.Context, pcm []byte, format audio.Format) (string, error)

// session is a live pseudo-streaming transcription session. All mutable
// state that drives silence detection and buffering is confined to the
// processLoop goroutine to avoid data races.
type session struct {
	// immutable configuration (set once at start)
	infer               inferFunc
	format              audio.Format
	silenceThresholdMs  int
	maxBufferDurationMs int

	audioCh chan []byte
	stream  *asr.Stream

	// lifecycle
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// final holds the accumulated session text, written only by processLoop
	// and read after wg.Wait in close.
	finalMu sync.Mutex
	final   []string
	started time.Time
}

// sendAudio queues a chunk of raw 16-bit little-endian PCM for silence
// analysis. Calling sendAudio after close returns an error.
func (s *session) sendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whisper: session is closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return errors.New("whisper: session is closed")
	}
}

// close terminates the session, waits for the final flush, closes the stream,
// and returns the utterance result (nil when no speech was transcribed).
func (s *session) close() *types.TranscriptionResult {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.stream.Close()
	})

	s.finalMu.Lock()
	defer s.finalMu.Unlock()
	text := strings.TrimSpace(strings.Join(s.final, " "))
	if text == "" {
		return nil
	}
	return &types.TranscriptionResult{
		Text:      text,
		Language:  types.DetectLanguage(text),
		IsFinal:   true,
		Timestamp: s.started,
	}
}

// processLoop is the single goroutine responsible for silence detection,
// audio buffering, and inference dispatch.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()

	s.started = time.Now()

	var (
		buffer    []byte // accumulated PCM for the current segment
		hadSpeech bool   // true once any high-energy chunk has been buffered
		silenceMs int    // consecutive silence accumulated after speech (ms)
	)

	// bytesPerMs: PCM bytes corresponding to 1 ms of audio.
	bytesPerMs := s.format.SampleRate * s.format.Channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32 // safe fallback (16 kHz, mono, 16-bit)
	}
	maxBufferBytes := s.maxBufferDurationMs * bytesPerMs

	// doFlush transcribes the current segment and publishes the accumulated
	// session text as an interim result. Buffer state is reset regardless of
	// outcome.
	doFlush := func(flushCtx context.Context) {
		if len(buffer) == 0 || !hadSpeech {
			buffer = nil
			hadSpeech = false
			silenceMs = 0
			return
		}

		pcm := buffer
		buffer = nil
		hadSpeech = false
		silenceMs = 0

		text, err := s.infer(flushCtx, pcm, s.format)
		if err != nil {
			slog.Error("whisper inference failed", "error", err)
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}

		s.finalMu.Lock()
		s.final = append(s.final, text)
		combined := strings.Join(s.final, " ")
		s.finalMu.Unlock()

		s.stream.Publish(types.TranscriptionResult{
			Text:      combined,
			Language:  types.DetectLanguage(combined),
			IsFinal:   false,
			Timestamp: time.Now(),
		})
	}

	// flushWithTimeout performs the terminal flush using a fresh context,
	// independent of the possibly cancelled ctx.
	flushWithTimeout := func() {
		fc, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		doFlush(fc)
	}

	for {
		select {
		case <-ctx.Done():
			flushWithTimeout()
			return

		case <-s.done:
			flushWithTimeout()
			return

		case chunk, ok := <-s.audioCh:
			if !ok {
				flushWithTimeout()
				return
			}

			rms := computeRMS(chunk)
			chunkMs := chunkDurationMs(chunk, s.format.SampleRate, s.format.Channels)

			if rms < defaultRMSThreshold {
				// Silent chunk: only relevant once speech has started.
				// Leading silence before any speech is discarded.
				if hadSpeech {
					silenceMs += chunkMs
					buffer = append(buffer, chunk...)
					if silenceMs >= s.silenceThresholdMs {
						doFlush(ctx)
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buffer = append(buffer, chunk...)
				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					doFlush(ctx)
				}
			}
		}
	}
}
