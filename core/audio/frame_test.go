package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestFramerEmitsExactFrames(t *testing.T) {
	t.Parallel()

	var framer Framer

	if frames := framer.Push(make([]byte, FrameBytes-1)); len(frames) != 0 {
		t.Fatalf("expected no frame below the frame size, got %d", len(frames))
	}

	frames := framer.Push(make([]byte, 1))
	if len(frames) != 1 {
		t.Fatalf("expected remainder to complete one frame, got %d", len(frames))
	}
	if len(frames[0]) != FrameBytes {
		t.Fatalf("expected frame of %d bytes, got %d", FrameBytes, len(frames[0]))
	}

	frames = framer.Push(make([]byte, FrameBytes*2+10))
	if len(frames) != 2 {
		t.Fatalf("expected two frames from oversized push, got %d", len(frames))
	}
}

func TestFramerPreservesByteOrderAcrossPushes(t *testing.T) {
	t.Parallel()

	input := make([]byte, FrameBytes)
	for i := range input {
		input[i] = byte(i % 251)
	}

	var framer Framer
	framer.Push(input[:100])
	frames := framer.Push(input[100:])
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], input) {
		t.Fatalf("expected frame bytes to match input order")
	}
}

func TestFramerFramesAreSafeToRetain(t *testing.T) {
	t.Parallel()

	var framer Framer
	frames := framer.Push(bytes.Repeat([]byte{0x7f}, FrameBytes))
	retained := frames[0][0]

	framer.Push(bytes.Repeat([]byte{0x01}, FrameBytes))
	if frames[0][0] != retained {
		t.Fatalf("expected retained frame to be unaffected by later pushes")
	}
}

func TestFramerReset(t *testing.T) {
	t.Parallel()

	var framer Framer
	framer.Push(make([]byte, FrameBytes/2))
	framer.Reset()

	if frames := framer.Push(make([]byte, FrameBytes/2)); len(frames) != 0 {
		t.Fatalf("expected reset to drop the carried remainder, got %d frames", len(frames))
	}
}

func TestPCM16FromFloat32ClampsAndConverts(t *testing.T) {
	t.Parallel()

	pcm := PCM16FromFloat32([]float32{0, 0.5, -0.5, 2, -2})
	if len(pcm) != 10 {
		t.Fatalf("expected 2 bytes per sample, got %d", len(pcm))
	}

	sampleAt := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	if got := sampleAt(0); got != 0 {
		t.Fatalf("expected silence to convert to zero, got %d", got)
	}
	if got := sampleAt(1); got != 16383 {
		t.Fatalf("unexpected mid-scale sample %d", got)
	}
	if got := sampleAt(3); got != math.MaxInt16 {
		t.Fatalf("expected positive overdrive to clamp, got %d", got)
	}
	if got := sampleAt(4); got != math.MinInt16 {
		t.Fatalf("expected negative overdrive to clamp, got %d", got)
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()

	if got := Level(make([]byte, FrameBytes)); got != 0 {
		t.Fatalf("expected silent frame to meter at zero, got %v", got)
	}
	if got := Level(nil); got != 0 {
		t.Fatalf("expected empty input to meter at zero, got %v", got)
	}

	fullScale := make([]byte, FrameBytes)
	for i := 0; i < len(fullScale); i += 2 {
		binary.LittleEndian.PutUint16(fullScale[i:], uint16(int16(math.MaxInt16)))
	}
	if got := Level(fullScale); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected full-scale frame to meter at one, got %v", got)
	}
}
