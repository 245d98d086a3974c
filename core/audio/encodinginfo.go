// Package audio holds the encoding metadata and frame arithmetic shared by
// the capture and playback pipelines.
package audio

const (
	// DefaultSampleRate is the capture and playback rate in Hz.
	DefaultSampleRate = 16000
	// DefaultFormat is 16-bit signed little-endian PCM.
	DefaultFormat = "linear16"

	// FrameSamples is the fixed capture frame size in samples. Downstream
	// voice-activity detection requires exactly this frame size; it must
	// not vary.
	FrameSamples = 512
	// FrameBytes is the capture frame size in bytes of PCM16.
	FrameBytes = FrameSamples * 2
)

// EncodingInfo describes a PCM stream.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

// GetDefaultEncodingInfo returns the voice-channel encoding: PCM16 mono at
// 16 kHz.
func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// BytesPerSecond returns the byte rate of the stream.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Format.ByteSize()
}

type encodingFormat string

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingMulaw    encodingFormat = "mulaw"
)

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}
