// Package portaudio is an alternative capture backend. It reads float
// samples from the default input device and converts them to the PCM16
// frames the voice channel expects.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/relishlabs/maitre-client/core/audio"
)

type Client struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	in      []float32
	stopped chan struct{}
}

// NewClient initializes the portaudio runtime. The input stream itself is
// opened per capture session.
func NewClient() (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &Client{}, nil
}

// StartCapture opens the default input stream and reads fixed-size float
// frames until StopCapture, delivering each frame as PCM16 bytes.
func (c *Client) StartCapture(ctx context.Context, onAudio func(pcm []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	c.in = make([]float32, audio.FrameSamples)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, audio.FrameSamples, c.in)
	if err != nil {
		return fmt.Errorf("failed to open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	c.stream = stream
	c.stopped = make(chan struct{})
	stopped := c.stopped

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = c.StopCapture()
				return
			case <-stopped:
				return
			default:
			}

			if err := stream.Read(); err != nil {
				// Overflows are expected under load; the frame is simply
				// dropped.
				continue
			}
			onAudio(audio.PCM16FromFloat32(c.in))
		}
	}()
	return nil
}

// StopCapture closes the input stream, releasing the device handle.
func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	close(c.stopped)
	err := c.stream.Stop()
	if closeErr := c.stream.Close(); err == nil {
		err = closeErr
	}
	c.stream = nil

	if err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

// Close releases the portaudio runtime.
func (c *Client) Close() {
	_ = c.StopCapture()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
