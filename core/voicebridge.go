package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/relishlabs/maitre-client/core/events"
)

// Voice-channel wire message types.
const (
	voiceTypeConnectionEstablished = "connection_established"
	voiceTypeSpeechStarted         = "speech_started"
	voiceTypeSpeechEnded           = "speech_ended"
	voiceTypeProcessingStart       = "processing_start"
	voiceTypeProcessingEnd         = "processing_end"
	voiceTypeTranscript            = "transcript"
	voiceTypeResponseText          = "response_text"
	voiceTypeAudioStart            = "audio_start"
	voiceTypeAudioChunk            = "audio_chunk"
	voiceTypeAudioEnd              = "audio_end"
	voiceTypeAGUIEvent             = "agui_event"
	voiceTypeError                 = "error"
	voiceTypeControl               = "control"

	voiceActionStopSpeech = "stop_speech"
)

// voiceMessage is the JSON envelope of every voice-channel message, both
// directions. Only the fields relevant to a given type are populated.
type voiceMessage struct {
	Type      string          `json:"type"`
	Audio     string          `json:"audio,omitempty"`
	Action    string          `json:"action,omitempty"`
	Text      string          `json:"text,omitempty"`
	Message   string          `json:"message,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	AGUI      json.RawMessage `json:"agui,omitempty"`
}

func newAudioChunkMessage(frame []byte) voiceMessage {
	return voiceMessage{
		Type:  voiceTypeAudioChunk,
		Audio: base64.StdEncoding.EncodeToString(frame),
	}
}

func newStopSpeechMessage() voiceMessage {
	return voiceMessage{Type: voiceTypeControl, Action: voiceActionStopSpeech}
}

// handleVoiceRecord dispatches one inbound voice-channel message. Structured
// non-audio messages converge on the same reducer the event channel feeds,
// so both modalities produce one conversation state. A malformed message is
// logged and dropped without affecting subsequent ones.
func (c *Client) handleVoiceRecord(record []byte) {
	var message voiceMessage
	if err := json.Unmarshal(record, &message); err != nil {
		logger.Warn("dropping malformed voice message", "error", err)
		return
	}

	switch message.Type {
	case voiceTypeConnectionEstablished:
		if message.SessionID != "" {
			c.adoptSessionID(message.SessionID)
		}
	case voiceTypeSpeechStarted:
		c.turns.SpeechStarted()
	case voiceTypeSpeechEnded:
		c.turns.SpeechEnded()
	case voiceTypeProcessingStart:
		c.turns.ProcessingStarted()
	case voiceTypeProcessingEnd:
		c.turns.ProcessingEnded()
	case voiceTypeTranscript:
		c.conversation.Apply(events.NewUserMessage(message.Text))
		if c.callbacks.onTranscript != nil {
			c.callbacks.onTranscript(message.Text)
		}
	case voiceTypeResponseText:
		if c.callbacks.onResponseText != nil {
			c.callbacks.onResponseText(message.Text)
		}
	case voiceTypeAudioStart:
		c.turns.AudioStarted()
		c.playback.Begin()
	case voiceTypeAudioChunk:
		pcm, err := base64.StdEncoding.DecodeString(message.Audio)
		if err != nil {
			logger.Warn("dropping undecodable audio chunk", "error", err)
			return
		}
		c.playback.Enqueue(pcm)
	case voiceTypeAudioEnd:
		c.turns.AudioEnded()
		c.playback.EndOfStream()
	case voiceTypeAGUIEvent:
		event, err := events.Decode(message.AGUI)
		if err != nil {
			logger.Warn("dropping malformed embedded event", "error", err)
			return
		}
		c.conversation.Apply(event)
	case voiceTypeError:
		c.recoverFromAgentError(fmt.Errorf("voice channel error: %s", message.Message), message.Message)
	default:
		logger.Warn("dropping voice message of unknown type", "type", message.Type)
	}
}

// handleEventRecord applies one inbound event-channel record to the
// conversation. Malformed records are dropped; a run error additionally
// runs turn-state recovery so playback and capture cannot stay wedged.
func (c *Client) handleEventRecord(record []byte) {
	event, err := events.Decode(record)
	if err != nil {
		logger.Warn("dropping malformed event record", "error", err)
		return
	}

	if runError, ok := event.(events.RunError); ok {
		c.recoverFromAgentError(fmt.Errorf("run error: %s", runError.Message), runError.Message)
		return
	}
	c.conversation.Apply(event)
}

// recoverFromAgentError surfaces an application-level error as a terminated
// run and returns the turn state machine to idle. The conversation remains
// usable for the next turn.
func (c *Client) recoverFromAgentError(err error, message string) {
	c.conversation.Apply(events.NewRunError(message))
	c.playback.Cancel()
	c.turns.ForceIdle()
	if c.callbacks.onError != nil {
		c.callbacks.onError(err)
	}
}
