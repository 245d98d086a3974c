package audio

import (
	"encoding/binary"
	"math"
)

// Framer rechunks arbitrarily sized PCM16 byte slices into fixed-size
// frames of exactly FrameBytes, carrying any remainder to the next push.
type Framer struct {
	leftover []byte
}

// Push appends PCM bytes and returns every complete frame now available.
// Returned frames are freshly allocated and safe to retain.
func (f *Framer) Push(pcm []byte) [][]byte {
	f.leftover = append(f.leftover, pcm...)

	var frames [][]byte
	for len(f.leftover) >= FrameBytes {
		frame := make([]byte, FrameBytes)
		copy(frame, f.leftover[:FrameBytes])
		frames = append(frames, frame)
		f.leftover = f.leftover[FrameBytes:]
	}
	return frames
}

// Reset drops any carried remainder.
func (f *Framer) Reset() {
	f.leftover = nil
}

// PCM16FromFloat32 converts float samples in [-1, 1] to 16-bit signed
// little-endian PCM, clamping out-of-range values.
func PCM16FromFloat32(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		scaled := sample * math.MaxInt16
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(scaled)))
	}
	return pcm
}

// Level returns the normalized RMS level of a PCM16 frame in [0, 1], used
// for microphone metering.
func Level(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var sum float64
	samples := len(pcm) / 2
	for i := 0; i < samples; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += sample * sample
	}
	return math.Sqrt(sum/float64(samples)) / math.MaxInt16
}
