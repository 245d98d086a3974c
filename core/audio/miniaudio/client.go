// Package miniaudio backs the capture and playback pipelines with malgo
// devices. Capture runs at the fixed voice-channel rate and frame size;
// playback exposes per-buffer completion callbacks so the playback pipeline
// can sequence buffers without overlap.
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/relishlabs/maitre-client/core/audio"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	captureClient
	playbackClient
}

// NewClient initializes the audio backend and both devices. The capture
// device stays stopped until StartCapture; no hardware handle is held for
// capture while it is stopped.
func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}
	client.captureClient.audioContext = audioCtx

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &client, nil
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
