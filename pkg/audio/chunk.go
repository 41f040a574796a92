package audio

import (
	"fmt"
	"time"
)

// Format describes the sample layout of a [Chunk].
type Format struct {
	// SampleRate in Hz (e.g., 16000 for transcription input).
	SampleRate int

	// Channels: 1 for mono (required by most transcription providers).
	Channels int

	// BitDepth in bits per sample. The pipeline uses 16-bit signed
	// little-endian PCM throughout.
	BitDepth int

	// Encoding names the byte layout, e.g. "pcm_s16le".
	Encoding string
}

// FormatPCM16Mono is the canonical pipeline format: 16 kHz mono 16-bit PCM.
var FormatPCM16Mono = Format{SampleRate: 16000, Channels: 1, BitDepth: 16, Encoding: "pcm_s16le"}

// Chunk is a single immutable slice of captured audio. Ownership passes to
// whichever stage currently holds it; no stage mutates Data in place.
type Chunk struct {
	// Data is the raw sample bytes in the layout described by Format.
	Data []byte

	// Format describes how Data is laid out.
	Format Format

	// Duration is the play length of Data.
	Duration time.Duration

	// Timestamp marks when this chunk was captured.
	Timestamp time.Time
}

// Concat joins chunks into a single chunk for batch transcription. All
// chunks must share the same format; the result carries the first chunk's
// timestamp and the summed duration.
func Concat(chunks []Chunk) (Chunk, error) {
	if len(chunks) == 0 {
		return Chunk{}, fmt.Errorf("audio: concat of zero chunks")
	}
	format := chunks[0].Format
	var size int
	var dur time.Duration
	for _, c := range chunks {
		if c.Format != format {
			return Chunk{}, fmt.Errorf("audio: concat format mismatch: %v vs %v", c.Format, format)
		}
		size += len(c.Data)
		dur += c.Duration
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c.Data...)
	}
	return Chunk{
		Data:      data,
		Format:    format,
		Duration:  dur,
		Timestamp: chunks[0].Timestamp,
	}, nil
}

// PCMDuration returns the play length of a PCM byte buffer in the given
// format. Returns 0 for invalid formats.
func PCMDuration(n int, f Format) time.Duration {
	bytesPerSec := f.SampleRate * f.Channels * f.BitDepth / 8
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bytesPerSec)
}
