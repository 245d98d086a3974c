package events

const (
	// KindRunStarted identifies the start of an agent run.
	KindRunStarted Kind = "RUN_STARTED"
	// KindRunFinished identifies successful completion of an agent run.
	KindRunFinished Kind = "RUN_FINISHED"
	// KindRunError identifies an agent run terminated by an error.
	KindRunError Kind = "RUN_ERROR"
	// KindActivityStart identifies the start of a free-text progress status.
	KindActivityStart Kind = "ACTIVITY_START"
	// KindActivityEnd identifies the end of the current progress status.
	KindActivityEnd Kind = "ACTIVITY_END"
)

// RunStarted marks the beginning of an agent run.
type RunStarted struct{ Base }

// NewRunStarted creates a run started event.
func NewRunStarted() RunStarted {
	return RunStarted{Base: NewBase(KindRunStarted)}
}

// RunFinished marks successful completion of the current agent run.
type RunFinished struct{ Base }

// NewRunFinished creates a run finished event.
func NewRunFinished() RunFinished {
	return RunFinished{Base: NewBase(KindRunFinished)}
}

// RunError marks an agent run terminated by an error. The conversation
// remains usable for the next turn.
type RunError struct {
	Base
	Message string
}

// NewRunError creates a run error event.
func NewRunError(message string) RunError {
	return RunError{Base: NewBase(KindRunError), Message: message}
}

// ActivityStart carries a free-text progress status for the active run.
type ActivityStart struct {
	Base
	Message string
}

// NewActivityStart creates an activity start event.
func NewActivityStart(message string) ActivityStart {
	return ActivityStart{Base: NewBase(KindActivityStart), Message: message}
}

// ActivityEnd clears the current progress status.
type ActivityEnd struct{ Base }

// NewActivityEnd creates an activity end event.
func NewActivityEnd() ActivityEnd {
	return ActivityEnd{Base: NewBase(KindActivityEnd)}
}
