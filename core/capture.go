package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/relishlabs/maitre-client/core/audio"
)

// ErrNoCaptureDevice is returned when voice mode is enabled without a
// configured capture device.
var ErrNoCaptureDevice = errors.New("no capture device configured")

// captureDevice streams raw microphone PCM. StopCapture must release the
// underlying hardware handle; no device handle may outlive the active
// capture session.
type captureDevice interface {
	StartCapture(ctx context.Context, onAudio func(pcm []byte)) error
	StopCapture() error
}

// captureControl is the shared mutable cell the device callback reads on
// every frame. The callback is registered once per capture session and
// still observes the latest voice-mode and turn-taking flags through it.
type captureControl struct {
	// enabled mirrors the voice-mode toggle.
	enabled atomic.Bool
	// muted is set for the whole duration of agent speech so the agent's
	// own voice is never transmitted back as user speech.
	muted atomic.Bool
}

// capturePipeline turns microphone input into fixed-size PCM16 frames and
// hands them to the transport while the turn-taking gate allows it.
type capturePipeline struct {
	device  captureDevice
	control *captureControl

	framerMu sync.Mutex
	framer   audio.Framer

	capturing atomic.Bool

	send    func(frame []byte) error
	onLevel func(level float64)
}

func newCapturePipeline(device captureDevice, send func([]byte) error, onLevel func(float64)) *capturePipeline {
	if send == nil {
		send = func([]byte) error { return nil }
	}
	return &capturePipeline{
		device:  device,
		control: &captureControl{},
		send:    send,
		onLevel: onLevel,
	}
}

// Start requests microphone access and begins framing. A device failure
// (typically denied microphone permission) is returned to the caller and
// leaves the pipeline stopped.
func (p *capturePipeline) Start(ctx context.Context) error {
	if p.device == nil {
		return ErrNoCaptureDevice
	}
	if !p.capturing.CompareAndSwap(false, true) {
		return nil
	}

	p.control.enabled.Store(true)
	if err := p.device.StartCapture(ctx, p.onAudio); err != nil {
		p.control.enabled.Store(false)
		p.capturing.Store(false)
		return fmt.Errorf("failed to start capture: %w", err)
	}
	return nil
}

// Stop ends the capture session and releases the device handle.
func (p *capturePipeline) Stop() error {
	if !p.capturing.CompareAndSwap(true, false) {
		return nil
	}

	p.control.enabled.Store(false)
	p.framerMu.Lock()
	p.framer.Reset()
	p.framerMu.Unlock()

	if p.device == nil {
		return nil
	}
	return p.device.StopCapture()
}

// SetMuted gates transmission while the agent holds the audio floor.
func (p *capturePipeline) SetMuted(muted bool) {
	p.control.muted.Store(muted)
}

// onAudio is the per-frame device callback. Dropped frames are dropped
// silently; nothing is transmitted while the toggle is off or the agent is
// speaking.
func (p *capturePipeline) onAudio(pcm []byte) {
	if !p.control.enabled.Load() || p.control.muted.Load() {
		return
	}

	p.framerMu.Lock()
	frames := p.framer.Push(pcm)
	p.framerMu.Unlock()

	for _, frame := range frames {
		if p.onLevel != nil {
			p.onLevel(audio.Level(frame))
		}
		if err := p.send(frame); err != nil {
			logger.Warn("dropping audio frame", "error", err)
			return
		}
	}
}
