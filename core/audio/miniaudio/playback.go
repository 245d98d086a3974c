package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/relishlabs/maitre-client/core/audio"
)

// playbackClient renders PCM16 through a malgo playback device. Each
// enqueued buffer carries a completion callback fired once the device has
// consumed the buffer's last byte; Clear drops buffered audio together with
// the not-yet-fired callbacks, which is what makes barge-in silent and
// callback-free.
type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	leftoverAudio []byte
	marks         []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
}

type playbackMark struct {
	position int
	callback func()
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.renderAudio(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

// Play appends one buffer and registers its completion callback at the
// buffer's end position.
func (c *playbackClient) Play(pcm []byte, onPlayed func()) error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return fmt.Errorf("device not initialized")
	} else if !device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, pcm...)
	if onPlayed != nil {
		c.marks = append(c.marks, playbackMark{position: len(c.leftoverAudio), callback: onPlayed})
	}
	return nil
}

// Clear drops all buffered audio and detaches every pending completion
// callback. Safe to call when nothing is queued.
func (c *playbackClient) Clear() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = nil
	c.marks = nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	return nil
}

func (c *playbackClient) renderAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.audioMu.Lock()
		consumed := min(need, len(c.leftoverAudio))
		copy(pOutput, c.leftoverAudio[:consumed])
		c.leftoverAudio = c.leftoverAudio[consumed:]
		fired := c.passMarksLocked(consumed)
		c.audioMu.Unlock()

		if len(fired) > 0 {
			go func() {
				for _, callback := range fired {
					callback()
				}
			}()
		}
	}
}

// passMarksLocked advances mark positions by the consumed byte count and
// collects the callbacks whose position has been fully rendered.
func (c *playbackClient) passMarksLocked(consumed int) []func() {
	var fired []func()
	kept := c.marks[:0]
	for _, mark := range c.marks {
		mark.position -= consumed
		if mark.position <= 0 {
			fired = append(fired, mark.callback)
			continue
		}
		kept = append(kept, mark)
	}
	c.marks = kept
	return fired
}
