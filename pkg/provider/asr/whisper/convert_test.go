package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestPCMToFloat32_Normalisation(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 6)
	negFull := int16(-32768)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(negFull))
	binary.LittleEndian.PutUint16(pcm[4:], uint16(int16(16384)))

	got := pcmToFloat32(pcm)
	want := []float32{0, -1.0, 0.5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32Mono_DownmixesStereo(t *testing.T) {
	t.Parallel()

	// One stereo frame: left = 16384, right = -16384 → mono 0.
	pcm := make([]byte, 4)
	negHalf := int16(-16384)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(negHalf))

	got := pcmToFloat32Mono(pcm, 2)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if math.Abs(float64(got[0])) > 1e-6 {
		t.Errorf("mono sample = %v, want 0", got[0])
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 320)
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if sr := binary.LittleEndian.Uint32(wav[24:28]); sr != 16000 {
		t.Errorf("sample rate = %d", sr)
	}
	if ds := binary.LittleEndian.Uint32(wav[40:44]); ds != uint32(len(pcm)) {
		t.Errorf("data size = %d", ds)
	}
}

func TestComputeRMS(t *testing.T) {
	t.Parallel()

	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("empty buffer RMS = %v", rms)
	}
	if rms := computeRMS(make([]byte, 64)); rms != 0 {
		t.Errorf("silence RMS = %v", rms)
	}

	// Constant full-scale signal: RMS equals the sample value.
	pcm := make([]byte, 64)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(1000)))
	}
	if rms := computeRMS(pcm); math.Abs(rms-1000) > 1e-6 {
		t.Errorf("constant signal RMS = %v, want 1000", rms)
	}
}

func TestChunkDurationMs(t *testing.T) {
	t.Parallel()

	// 16 kHz mono 16-bit → 32 bytes per ms.
	if ms := chunkDurationMs(make([]byte, 320), 16000, 1); ms != 10 {
		t.Errorf("duration = %d ms, want 10", ms)
	}
	if ms := chunkDurationMs(make([]byte, 100), 0, 1); ms != 0 {
		t.Errorf("invalid rate duration = %d, want 0", ms)
	}
}
