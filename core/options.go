package client

import (
	"github.com/relishlabs/maitre-client/core/sessions"
	"github.com/relishlabs/maitre-client/core/transport"
)

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// AudioDevice is a combined capture and playback backend, e.g. the
// miniaudio client.
type AudioDevice interface {
	captureDevice
	playbackDevice
}

// WithServerURL sets the websocket base URL, e.g. "wss://host". The event
// and voice channel paths are derived from it.
func WithServerURL(url string) ClientOption {
	return func(c *Client) { c.config.ServerURL = url }
}

// WithLanguage selects the spoken language for the voice channel.
func WithLanguage(language string) ClientOption {
	return func(c *Client) { c.config.Language = language }
}

// WithAudioDevice wires one backend for both capture and playback.
func WithAudioDevice(device AudioDevice) ClientOption {
	return func(c *Client) {
		c.captureDev = device
		c.playbackDev = device
	}
}

// WithCaptureDevice wires the microphone backend.
func WithCaptureDevice(device captureDevice) ClientOption {
	return func(c *Client) { c.captureDev = device }
}

// WithPlaybackDevice wires the speaker backend.
func WithPlaybackDevice(device playbackDevice) ClientOption {
	return func(c *Client) { c.playbackDev = device }
}

// WithSessionStore replaces the default session-resume store.
func WithSessionStore(store *sessions.Store) ClientOption {
	return func(c *Client) { c.sessionStore = store }
}

// WithFreshSession skips session resumption even when a recent session
// record exists.
func WithFreshSession() ClientOption {
	return func(c *Client) { c.forceFresh = true }
}

// WithTransportOptions forwards options to the transport manager, e.g.
// channel reconnect delays.
func WithTransportOptions(opts ...transport.ManagerOption) ClientOption {
	return func(c *Client) { c.transportOptions = append(c.transportOptions, opts...) }
}

// WithTranscriptCallback is called with each finalized user transcript
// recognized on the voice channel.
func WithTranscriptCallback(onTranscript func(text string)) ClientOption {
	return func(c *Client) { c.callbacks.onTranscript = onTranscript }
}

// WithResponseTextCallback is called with the text form of spoken agent
// responses.
func WithResponseTextCallback(onResponseText func(text string)) ClientOption {
	return func(c *Client) { c.callbacks.onResponseText = onResponseText }
}

// WithErrorCallback is called with surfaced application-level errors.
func WithErrorCallback(onError func(err error)) ClientOption {
	return func(c *Client) { c.callbacks.onError = onError }
}

// WithTurnStateCallback is called on every turn-taking transition.
func WithTurnStateCallback(onTurnState func(state TurnState)) ClientOption {
	return func(c *Client) { c.callbacks.onTurnState = onTurnState }
}

// WithStatusCallback is called on every channel status change.
func WithStatusCallback(onStatus func(source transport.Source, status transport.Status)) ClientOption {
	return func(c *Client) { c.callbacks.onStatus = onStatus }
}

// WithMicLevelCallback is called with the RMS level of each transmitted
// frame, for UI metering.
func WithMicLevelCallback(onMicLevel func(level float64)) ClientOption {
	return func(c *Client) { c.callbacks.onMicLevel = onMicLevel }
}

type clientCallbacks struct {
	onTranscript   func(string)
	onResponseText func(string)
	onError        func(error)
	onTurnState    func(TurnState)
	onStatus       func(transport.Source, transport.Status)
	onMicLevel     func(float64)
}
