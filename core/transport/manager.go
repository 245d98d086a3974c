package transport

import (
	"context"
	"errors"
	"time"
)

// Source identifies which channel delivered an inbound record.
type Source int

const (
	// SourceEvents is the text/event channel.
	SourceEvents Source = iota
	// SourceVoice is the voice channel.
	SourceVoice
)

func (s Source) String() string {
	if s == SourceVoice {
		return "voice"
	}
	return "events"
}

// Manager owns the two channels and converges their inbound traffic onto a
// single callback sink. The channels stay independent: each has its own
// lifecycle and status, and no relative delivery order is guaranteed
// between them.
type Manager struct {
	events *Channel
	voice  *Channel

	onRecord func(Source, []byte)
}

// ManagerOption configures the Manager's channels.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	eventOptions []ChannelOption
	voiceOptions []ChannelOption
}

// WithEventChannelOptions forwards options to the event channel.
func WithEventChannelOptions(opts ...ChannelOption) ManagerOption {
	return func(o *managerOptions) { o.eventOptions = append(o.eventOptions, opts...) }
}

// WithVoiceChannelOptions forwards options to the voice channel.
func WithVoiceChannelOptions(opts ...ChannelOption) ManagerOption {
	return func(o *managerOptions) { o.voiceOptions = append(o.voiceOptions, opts...) }
}

// NewManager creates a manager for the given channel URLs. Both URL
// functions are re-evaluated on every dial. onRecord receives every inbound
// frame tagged with its source channel.
func NewManager(eventURL, voiceURL func() string, onRecord func(Source, []byte), opts ...ManagerOption) *Manager {
	if onRecord == nil {
		onRecord = func(Source, []byte) {}
	}

	options := managerOptions{
		voiceOptions: []ChannelOption{WithKeepAlive(30 * time.Second)},
	}
	for _, opt := range opts {
		opt(&options)
	}

	manager := &Manager{onRecord: onRecord}
	manager.events = NewChannel("events",
		eventURL,
		func(record []byte) { manager.onRecord(SourceEvents, record) },
		options.eventOptions...)
	manager.voice = NewChannel("voice",
		voiceURL,
		func(record []byte) { manager.onRecord(SourceVoice, record) },
		options.voiceOptions...)
	return manager
}

// ConnectEvents dials the event channel.
func (m *Manager) ConnectEvents(ctx context.Context) error { return m.events.Connect(ctx) }

// ConnectVoice dials the voice channel.
func (m *Manager) ConnectVoice(ctx context.Context) error { return m.voice.Connect(ctx) }

// ReconnectEvents re-dials the event channel with the latest connection
// parameters.
func (m *Manager) ReconnectEvents(ctx context.Context) error { return m.events.Reconnect(ctx) }

// ReconnectVoice re-dials the voice channel with the latest connection
// parameters, e.g. after a spoken-language change.
func (m *Manager) ReconnectVoice(ctx context.Context) error { return m.voice.Reconnect(ctx) }

// CloseVoice shuts the voice channel down while leaving the event channel
// connected.
func (m *Manager) CloseVoice() error { return m.voice.Close() }

// SendEvent writes a message to the event channel.
func (m *Manager) SendEvent(message any) error { return m.events.Send(message) }

// SendVoice writes a message to the voice channel.
func (m *Manager) SendVoice(message any) error { return m.voice.Send(message) }

// EventsStatus reports the event channel status.
func (m *Manager) EventsStatus() Status { return m.events.Status() }

// VoiceStatus reports the voice channel status.
func (m *Manager) VoiceStatus() Status { return m.voice.Status() }

// Close shuts both channels down.
func (m *Manager) Close() error {
	return errors.Join(m.events.Close(), m.voice.Close())
}
