package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/relishlabs/maitre-client/core/audio"
)

// fakeCaptureDevice hands the registered frame callback back to the test so
// it can inject microphone data.
type fakeCaptureDevice struct {
	mu sync.Mutex

	onAudio  func([]byte)
	started  int
	stopped  int
	startErr error
}

func (d *fakeCaptureDevice) StartCapture(_ context.Context, onAudio func(pcm []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startErr != nil {
		return d.startErr
	}
	d.onAudio = onAudio
	d.started++
	return nil
}

func (d *fakeCaptureDevice) StopCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped++
	d.onAudio = nil
	return nil
}

func (d *fakeCaptureDevice) inject(t *testing.T, pcm []byte) {
	t.Helper()

	d.mu.Lock()
	onAudio := d.onAudio
	d.mu.Unlock()
	if onAudio == nil {
		t.Fatalf("no capture callback registered")
	}
	onAudio(pcm)
}

func TestCaptureEmitsFixedSizeFrames(t *testing.T) {
	device := &fakeCaptureDevice{}
	var sent [][]byte
	pipeline := newCapturePipeline(device, func(frame []byte) error {
		sent = append(sent, frame)
		return nil
	}, nil)

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	device.inject(t, make([]byte, audio.FrameBytes/2))
	if len(sent) != 0 {
		t.Fatalf("expected no frame below the frame size, got %d", len(sent))
	}

	device.inject(t, make([]byte, audio.FrameBytes))
	if len(sent) != 1 {
		t.Fatalf("expected one complete frame, got %d", len(sent))
	}
	if len(sent[0]) != audio.FrameBytes {
		t.Fatalf("expected frame of %d bytes, got %d", audio.FrameBytes, len(sent[0]))
	}
}

func TestCaptureDropsFramesWhileMuted(t *testing.T) {
	device := &fakeCaptureDevice{}
	var sent [][]byte
	pipeline := newCapturePipeline(device, func(frame []byte) error {
		sent = append(sent, frame)
		return nil
	}, nil)

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	pipeline.SetMuted(true)
	device.inject(t, make([]byte, audio.FrameBytes*3))
	if len(sent) != 0 {
		t.Fatalf("expected muted frames to be dropped, got %d", len(sent))
	}

	pipeline.SetMuted(false)
	device.inject(t, make([]byte, audio.FrameBytes))
	if len(sent) != 1 {
		t.Fatalf("expected transmission to resume after unmute, got %d", len(sent))
	}
}

func TestCaptureStartWithoutDevice(t *testing.T) {
	pipeline := newCapturePipeline(nil, nil, nil)

	if err := pipeline.Start(context.Background()); !errors.Is(err, ErrNoCaptureDevice) {
		t.Fatalf("expected ErrNoCaptureDevice, got %v", err)
	}
}

func TestCaptureStartFailureLeavesPipelineStopped(t *testing.T) {
	deviceErr := errors.New("microphone permission denied")
	device := &fakeCaptureDevice{startErr: deviceErr}
	pipeline := newCapturePipeline(device, nil, nil)

	if err := pipeline.Start(context.Background()); !errors.Is(err, deviceErr) {
		t.Fatalf("expected device error to surface, got %v", err)
	}

	// A later start must be able to try again.
	device.mu.Lock()
	device.startErr = nil
	device.mu.Unlock()
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
}

func TestCaptureStopReleasesDeviceAndDropsRemainder(t *testing.T) {
	device := &fakeCaptureDevice{}
	var sent [][]byte
	pipeline := newCapturePipeline(device, func(frame []byte) error {
		sent = append(sent, frame)
		return nil
	}, nil)

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	device.inject(t, make([]byte, audio.FrameBytes/2))

	if err := pipeline.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	device.mu.Lock()
	stopped := device.stopped
	device.mu.Unlock()
	if stopped != 1 {
		t.Fatalf("expected device handle to be released, got %d stops", stopped)
	}

	// Restart: the carried half-frame from the previous session is gone.
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected restart error: %v", err)
	}
	device.inject(t, make([]byte, audio.FrameBytes/2))
	if len(sent) != 0 {
		t.Fatalf("expected stale remainder to be dropped across sessions, got %d frames", len(sent))
	}

	if err := pipeline.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if err := pipeline.Stop(); err != nil {
		t.Fatalf("expected repeated stop to be a no-op, got %v", err)
	}
}

func TestCaptureReportsMicLevel(t *testing.T) {
	device := &fakeCaptureDevice{}
	var levels []float64
	pipeline := newCapturePipeline(device,
		func([]byte) error { return nil },
		func(level float64) { levels = append(levels, level) })

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	device.inject(t, make([]byte, audio.FrameBytes))
	if len(levels) != 1 {
		t.Fatalf("expected one level sample per frame, got %d", len(levels))
	}
	if levels[0] != 0 {
		t.Fatalf("expected silent frame to meter at zero, got %v", levels[0])
	}
}

func TestCaptureStopsTransmittingOnSendError(t *testing.T) {
	device := &fakeCaptureDevice{}
	calls := 0
	pipeline := newCapturePipeline(device, func([]byte) error {
		calls++
		return errors.New("socket gone")
	}, nil)

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	// Three frames' worth in one push: the first send fails and the rest of
	// the batch is abandoned.
	device.inject(t, make([]byte, audio.FrameBytes*3))
	if calls != 1 {
		t.Fatalf("expected batch to stop after the failed send, got %d calls", calls)
	}
}
