package client

import "sync"

// TurnState is the turn-taking arbitration state: who, if anyone, currently
// holds the audio floor.
type TurnState int32

const (
	// TurnIdle means nobody is speaking and no response is in flight.
	TurnIdle TurnState = iota
	// TurnUserSpeaking means server-side VAD detected user speech.
	TurnUserSpeaking
	// TurnProcessing means the agent is working on a response.
	TurnProcessing
	// TurnAgentSpeaking means agent speech is being played back; captured
	// microphone frames are dropped for its whole duration.
	TurnAgentSpeaking
)

func (s TurnState) String() string {
	switch s {
	case TurnUserSpeaking:
		return "user_speaking"
	case TurnProcessing:
		return "processing"
	case TurnAgentSpeaking:
		return "agent_speaking"
	}
	return "idle"
}

// turnController is the small state machine arbitrating the audio floor. It
// is driven exclusively by server control signals and playback progress.
//
// Leaving TurnAgentSpeaking is special: the server's audio-end signal
// usually arrives while buffers are still queued or playing, so it only
// records a pending exit; the actual transition happens when the playback
// pipeline reports its queue drained.
type turnController struct {
	mu sync.Mutex

	state           TurnState
	pendingAudioEnd bool

	onChange func(TurnState)
}

func newTurnController(onChange func(TurnState)) *turnController {
	if onChange == nil {
		onChange = func(TurnState) {}
	}
	return &turnController{onChange: onChange}
}

func (t *turnController) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *turnController) AgentSpeaking() bool {
	return t.State() == TurnAgentSpeaking
}

func (t *turnController) SpeechStarted() {
	t.transition(func(state TurnState) (TurnState, bool) {
		if state != TurnIdle {
			return state, false
		}
		return TurnUserSpeaking, true
	})
}

func (t *turnController) SpeechEnded() {
	t.transition(func(state TurnState) (TurnState, bool) {
		if state != TurnUserSpeaking {
			return state, false
		}
		return TurnIdle, true
	})
}

func (t *turnController) ProcessingStarted() {
	t.transition(func(state TurnState) (TurnState, bool) {
		if state != TurnIdle && state != TurnUserSpeaking {
			return state, false
		}
		return TurnProcessing, true
	})
}

func (t *turnController) ProcessingEnded() {
	t.transition(func(state TurnState) (TurnState, bool) {
		if state != TurnProcessing {
			return state, false
		}
		return TurnIdle, true
	})
}

// AudioStarted enters TurnAgentSpeaking unconditionally; agent speech
// overrides whatever the floor state was.
func (t *turnController) AudioStarted() {
	t.mu.Lock()
	t.pendingAudioEnd = false
	changed := t.state != TurnAgentSpeaking
	t.state = TurnAgentSpeaking
	onChange := t.onChange
	state := t.state
	t.mu.Unlock()

	if changed {
		onChange(state)
	}
}

// AudioEnded records the server's audio-end signal. The transition out of
// TurnAgentSpeaking is deferred until PlaybackDrained.
func (t *turnController) AudioEnded() {
	t.mu.Lock()
	if t.state == TurnAgentSpeaking {
		t.pendingAudioEnd = true
	}
	t.mu.Unlock()
}

// PlaybackDrained completes a deferred audio-end transition once the last
// buffer has finished playing.
func (t *turnController) PlaybackDrained() {
	t.transition(func(state TurnState) (TurnState, bool) {
		if state != TurnAgentSpeaking || !t.pendingAudioEnd {
			return state, false
		}
		t.pendingAudioEnd = false
		return TurnIdle, true
	})
}

// ForceIdle returns the floor to idle immediately. It backs barge-in and
// every error-recovery path; no error condition may leave the state machine
// stuck outside idle.
func (t *turnController) ForceIdle() {
	t.transition(func(state TurnState) (TurnState, bool) {
		t.pendingAudioEnd = false
		if state == TurnIdle {
			return state, false
		}
		return TurnIdle, true
	})
}

func (t *turnController) transition(step func(TurnState) (TurnState, bool)) {
	t.mu.Lock()
	next, changed := step(t.state)
	t.state = next
	onChange := t.onChange
	t.mu.Unlock()

	if changed {
		onChange(next)
	}
}
