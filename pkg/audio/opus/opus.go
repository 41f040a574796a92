// Package opus provides an [audio.Source] fed by a stream of Opus packets,
// as produced by an out-of-process capture daemon. Packets are decoded with
// gopus into 16 kHz mono 16-bit PCM chunks, the canonical pipeline format.
//
// The adapter performs no device I/O itself: permission handling is the
// daemon's job, so RequestPermission always grants. Idle keeps the decoder
// state alive while discarding packets, mirroring the low-power tap
// behaviour of a real microphone engine.
package opus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"layeh.com/gopus"

	"github.com/voxd/voxd/pkg/audio"
)

// Dictation capture uses 16 kHz mono Opus at 20 ms frame size.
const (
	sampleRate  = 16000
	channels    = 1
	frameSizeMs = 20
	// frameSize is the number of samples per channel per 20 ms frame.
	frameSize = sampleRate * frameSizeMs / 1000 // 320
)

type state int

const (
	stateStopped state = iota
	stateRunning
	stateIdle
)

// Source decodes an Opus packet feed into PCM [audio.Chunk] values.
// It implements [audio.Source].
type Source struct {
	packets <-chan []byte

	mu     sync.Mutex
	dec    *gopus.Decoder
	st     state
	out    chan audio.Chunk
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// New creates a Source reading Opus packets from packets. The channel is
// owned by the caller; closing it ends the feed.
func New(packets <-chan []byte) *Source {
	return &Source{
		packets: packets,
		out:     make(chan audio.Chunk, 64),
	}
}

// RequestPermission always grants: the capture daemon owns the real device
// permission.
func (s *Source) RequestPermission(_ context.Context) (bool, error) {
	return true, nil
}

// Start creates the decoder and begins forwarding decoded chunks.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st != stateStopped {
		return errors.New("opus: source already started")
	}

	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return fmt.Errorf("opus: create decoder: %w", audio.ErrFormatUnsupported)
	}
	s.dec = dec

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.st = stateRunning

	s.wg.Add(1)
	go s.decodeLoop(loopCtx)
	return nil
}

// Resume switches a warm, idle-tapped source back to delivering chunks.
func (s *Source) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == stateStopped {
		return errors.New("opus: cannot resume a stopped source")
	}
	s.st = stateRunning
	return nil
}

// Idle keeps the decoder warm but discards incoming packets.
func (s *Source) Idle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == stateStopped {
		return errors.New("opus: cannot idle a stopped source")
	}
	s.st = stateIdle
	return nil
}

// Stop tears down the decode loop and closes the chunk channel.
func (s *Source) Stop() error {
	s.mu.Lock()
	if s.st == stateStopped {
		s.mu.Unlock()
		return nil
	}
	s.st = stateStopped
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	close(s.out)
	return nil
}

// Chunks returns the decoded chunk feed. Closed by Stop.
func (s *Source) Chunks() <-chan audio.Chunk { return s.out }

// EngineRunning reports whether the decode loop is alive (running or idle).
func (s *Source) EngineRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st != stateStopped
}

// decodeLoop reads Opus packets, decodes them, and forwards PCM chunks while
// the source is in the running state. Packets arriving while idle are
// decoded and discarded so decoder state stays consistent across frames.
func (s *Source) decodeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-s.packets:
			if !ok {
				return
			}
			pcm, err := s.dec.Decode(pkt, frameSize, false)
			if err != nil {
				continue // a corrupt packet is not fatal to the stream
			}

			s.mu.Lock()
			running := s.st == stateRunning
			s.mu.Unlock()
			if !running {
				continue
			}

			data := int16sToBytes(pcm)
			chunk := audio.Chunk{
				Data:      data,
				Format:    audio.FormatPCM16Mono,
				Duration:  audio.PCMDuration(len(data), audio.FormatPCM16Mono),
				Timestamp: time.Now(),
			}
			select {
			case s.out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}
}

// int16sToBytes converts a slice of int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return b
}
