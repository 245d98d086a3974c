package events

const (
	// KindTextMessageStart identifies the opening of a streaming message.
	KindTextMessageStart Kind = "TEXT_MESSAGE_START"
	// KindTextMessageContent identifies an append-only text delta.
	KindTextMessageContent Kind = "TEXT_MESSAGE_CONTENT"
	// KindTextMessageEnd identifies finalization of the streaming message.
	KindTextMessageEnd Kind = "TEXT_MESSAGE_END"
	// KindUserMessage identifies text the local user submitted or spoke.
	KindUserMessage Kind = "USER_MESSAGE"
)

// TextMessageStart opens a new streaming message for the given role.
type TextMessageStart struct {
	Base
	Role string
}

// NewTextMessageStart creates a text message start event.
func NewTextMessageStart(role string) TextMessageStart {
	return TextMessageStart{Base: NewBase(KindTextMessageStart), Role: role}
}

// TextMessageContent carries a text delta for the currently streaming
// message. Deltas arriving while no message is streaming are dropped by the
// reducer.
type TextMessageContent struct {
	Base
	Delta string
}

// NewTextMessageContent creates a text delta event.
func NewTextMessageContent(delta string) TextMessageContent {
	return TextMessageContent{Base: NewBase(KindTextMessageContent), Delta: delta}
}

// TextMessageEnd finalizes the currently streaming message.
type TextMessageEnd struct{ Base }

// NewTextMessageEnd creates a text message end event.
func NewTextMessageEnd() TextMessageEnd {
	return TextMessageEnd{Base: NewBase(KindTextMessageEnd)}
}

// UserMessage carries finalized text originating from the local user,
// either typed input or a voice-channel transcript. It is client-local and
// never decoded from the wire.
type UserMessage struct {
	Base
	Text string
}

// NewUserMessage creates a user message event.
func NewUserMessage(text string) UserMessage {
	return UserMessage{Base: NewBase(KindUserMessage), Text: text}
}
