// Package client is the conversational client core: it maintains the two
// socket channels to the remote agent, reduces their heterogeneous event
// streams into one ordered conversation state, and runs the real-time audio
// pipelines under the turn-taking discipline.
//
// The package decides nothing about conversation content and persists no
// conversation data; it transports, sequences, and renders the effects of
// the remote agent's decisions.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/relishlabs/maitre-client/core/conversation"
	"github.com/relishlabs/maitre-client/core/events"
	"github.com/relishlabs/maitre-client/core/sessions"
	"github.com/relishlabs/maitre-client/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultServerURL = "ws://localhost:8000"

// Config holds the connection parameters that may change over a session's
// lifetime.
type Config struct {
	// ServerURL is the websocket base URL.
	ServerURL string
	// Language is the spoken-language selection carried on the voice
	// channel URL; changing it requires a voice reconnect.
	Language string
}

// Client is the session controller owning transports, state, and audio.
type Client struct {
	mu sync.Mutex

	config    Config
	sessionID string
	resumed   bool

	conversation *conversation.Reducer
	transports   *transport.Manager
	turns        *turnController
	capture      *capturePipeline
	playback     *playbackPipeline
	sessionStore *sessions.Store

	captureDev       captureDevice
	playbackDev      playbackDevice
	transportOptions []transport.ManagerOption
	forceFresh       bool
	callbacks        clientCallbacks

	voiceEnabled bool
	closeOnce    sync.Once
	baseContext  context.Context
}

// New assembles a client. A recent session within the resume window is
// reused unless WithFreshSession is set; otherwise a fresh session id is
// issued locally and confirmed by the server on connect.
func New(opts ...ClientOption) (*Client, error) {
	c := &Client{
		config:      Config{ServerURL: defaultServerURL, Language: "en"},
		baseContext: context.Background(),
	}
	if serverURL, ok := os.LookupEnv("MAITRE_SERVER_URL"); ok {
		c.config.ServerURL = serverURL
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sessionStore == nil {
		store, err := sessions.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		c.sessionStore = store
	}

	if record, ok := c.sessionStore.Recent(); ok && !c.forceFresh {
		c.sessionID = record.SessionID
		c.resumed = true
	} else {
		c.sessionID = uuid.NewString()
	}

	c.conversation = conversation.NewReducer()
	c.turns = newTurnController(c.onTurnChanged)
	c.playback = newPlaybackPipeline(c.playbackDev, c.turns.PlaybackDrained)
	c.capture = newCapturePipeline(c.captureDev, c.sendAudioFrame, c.callbacks.onMicLevel)

	managerOptions := c.transportOptions
	if c.callbacks.onStatus != nil {
		onStatus := c.callbacks.onStatus
		managerOptions = append(managerOptions,
			transport.WithEventChannelOptions(transport.WithStatusCallback(func(status transport.Status) {
				onStatus(transport.SourceEvents, status)
			})),
			transport.WithVoiceChannelOptions(transport.WithStatusCallback(func(status transport.Status) {
				onStatus(transport.SourceVoice, status)
			})),
		)
	}
	c.transports = transport.NewManager(c.eventURL, c.voiceURL, c.handleRecord, managerOptions...)

	return c, nil
}

// Connect opens the event channel. Voice stays disabled until EnableVoice.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client connect")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", c.SessionID()),
		attribute.Bool("resumed", c.ResumedSession()),
	)

	c.mu.Lock()
	c.baseContext = ctx
	sessionID := c.sessionID
	c.mu.Unlock()

	if err := c.sessionStore.Touch(sessionID); err != nil {
		logger.Warn("failed to record session", "error", err)
	}

	if err := c.transports.ConnectEvents(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// EnableVoice connects the voice channel and starts microphone capture. A
// capture failure (typically denied microphone permission) is returned and
// leaves voice mode disabled; the voice channel is torn back down.
func (c *Client) EnableVoice(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "enable voice")
	defer span.End()

	if err := c.transports.ConnectVoice(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.capture.Start(ctx); err != nil {
		_ = c.transports.CloseVoice()
		recordedErr := fmt.Errorf("voice mode unavailable: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}

	c.mu.Lock()
	c.voiceEnabled = true
	c.mu.Unlock()
	return nil
}

// DisableVoice stops capture, silences playback, and closes the voice
// channel. The microphone handle is released before anything else.
func (c *Client) DisableVoice() error {
	c.mu.Lock()
	c.voiceEnabled = false
	c.mu.Unlock()

	err := c.capture.Stop()
	c.playback.Cancel()
	c.turns.ForceIdle()
	return errors.Join(err, c.transports.CloseVoice())
}

// SendText submits typed user input. Pending quick replies are purged
// before the input leaves the client so stale option sets never straddle a
// new turn.
func (c *Client) SendText(text string) error {
	c.conversation.Apply(events.NewQuickRepliesCleared())
	c.conversation.Apply(events.NewUserMessage(text))
	return c.transports.SendEvent(outboundUserMessage{Type: "USER_MESSAGE", Text: text})
}

// BargeIn cancels in-progress agent speech: the playback queue is cleared,
// the in-flight buffer stopped with its completion detached, the floor
// returns to idle, and the server is told to stop generating. Invoking it
// when nothing is playing is a safe no-op.
func (c *Client) BargeIn() error {
	_, span := tracer.Start(c.baseContext, "barge-in")
	defer span.End()

	c.playback.Cancel()
	c.turns.ForceIdle()

	err := c.transports.SendVoice(newStopSpeechMessage())
	if errors.Is(err, transport.ErrNotConnected) || errors.Is(err, transport.ErrChannelClosed) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ApplyConfig applies changed connection parameters. A language or server
// change re-dials the affected channels with the new URL parameters.
func (c *Client) ApplyConfig(ctx context.Context, config Config) error {
	c.mu.Lock()
	serverChanged := config.ServerURL != "" && config.ServerURL != c.config.ServerURL
	languageChanged := config.Language != "" && config.Language != c.config.Language
	if config.ServerURL != "" {
		c.config.ServerURL = config.ServerURL
	}
	if config.Language != "" {
		c.config.Language = config.Language
	}
	voiceEnabled := c.voiceEnabled
	c.mu.Unlock()

	var errs error
	if serverChanged {
		errs = errors.Join(errs, c.transports.ReconnectEvents(ctx))
	}
	if (serverChanged || languageChanged) && voiceEnabled {
		errs = errors.Join(errs, c.transports.ReconnectVoice(ctx))
	}
	return errs
}

// Conversation returns a deep snapshot of the conversation state.
func (c *Client) Conversation() conversation.State { return c.conversation.State() }

// SubscribeConversation registers a conversation state-change callback.
func (c *Client) SubscribeConversation(subscriber func(conversation.State)) (cancel func()) {
	return c.conversation.Subscribe(subscriber)
}

// TurnState returns the current turn-taking state.
func (c *Client) TurnState() TurnState { return c.turns.State() }

// EventsStatus reports the event channel connection status.
func (c *Client) EventsStatus() transport.Status { return c.transports.EventsStatus() }

// VoiceStatus reports the voice channel connection status.
func (c *Client) VoiceStatus() transport.Status { return c.transports.VoiceStatus() }

// SessionID returns the active session identifier.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResumedSession reports whether the session id was taken from the local
// resume record rather than freshly issued.
func (c *Client) ResumedSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumed
}

// Close releases the microphone, silences playback, and closes both
// channels.
func (c *Client) Close() error {
	var errs error
	c.closeOnce.Do(func() {
		if err := c.capture.Stop(); err != nil {
			recordedErr := fmt.Errorf("failed to stop capture: %w", err)
			span := trace.SpanFromContext(c.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
			errs = errors.Join(errs, recordedErr)
		}
		c.playback.Cancel()
		c.turns.ForceIdle()
		errs = errors.Join(errs, c.transports.Close())
	})
	return errs
}

// handleRecord is the single inbound sink for both channels. Per-channel
// arrival order is preserved; no relative order between the channels is
// assumed.
func (c *Client) handleRecord(source transport.Source, record []byte) {
	switch source {
	case transport.SourceVoice:
		c.handleVoiceRecord(record)
	default:
		c.handleEventRecord(record)
	}
}

func (c *Client) sendAudioFrame(frame []byte) error {
	return c.transports.SendVoice(newAudioChunkMessage(frame))
}

// onTurnChanged mutes capture for the whole duration of agent speech. The
// mute is a turn-taking guarantee, not an acoustic one: it holds even when
// OS-level echo cancellation is imperfect.
func (c *Client) onTurnChanged(state TurnState) {
	c.capture.SetMuted(state == TurnAgentSpeaking)
	if c.callbacks.onTurnState != nil {
		c.callbacks.onTurnState(state)
	}
}

func (c *Client) adoptSessionID(sessionID string) {
	c.mu.Lock()
	changed := c.sessionID != sessionID
	c.sessionID = sessionID
	c.mu.Unlock()

	if changed {
		logger.Info("server assigned new session", "session_id", sessionID)
	}
	if err := c.sessionStore.Touch(sessionID); err != nil {
		logger.Warn("failed to record session", "error", err)
	}
}

// eventURL is re-evaluated on every dial so reconnects carry the current
// session id.
func (c *Client) eventURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return buildURL(c.config.ServerURL, "/ws/events", url.Values{
		"session_id": {c.sessionID},
	})
}

// voiceURL carries the session id and the active spoken language.
func (c *Client) voiceURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return buildURL(c.config.ServerURL, "/ws/voice", url.Values{
		"session_id": {c.sessionID},
		"language":   {c.config.Language},
	})
}

func buildURL(base, path string, query url.Values) string {
	parsed, err := url.Parse(base)
	if err != nil {
		return base + path + "?" + query.Encode()
	}
	parsed.Path, _ = url.JoinPath(parsed.Path, path)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

type outboundUserMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
