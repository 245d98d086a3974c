package conversation

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKind identifies how a message is rendered. Kinds form a closed set;
// structured kinds carry their payload in Data.
type MessageKind string

const (
	KindText           MessageKind = "text"
	KindCart           MessageKind = "cart"
	KindMenu           MessageKind = "menu"
	KindSearchResults  MessageKind = "search_results"
	KindOrder          MessageKind = "order"
	KindPaymentLink    MessageKind = "payment_link"
	KindPaymentSuccess MessageKind = "payment_success"
	KindReceipt        MessageKind = "receipt"
	KindQuickReplies   MessageKind = "quick_replies"
	KindForm           MessageKind = "form"
)

// Message is one rendered entry of the conversation log. Insertion order is
// significant and preserved by the reducer.
type Message struct {
	// ID is unique and monotonically increasing within a session.
	ID int64
	// Role is the author of the message.
	Role Role
	// Kind selects the rendering of the message.
	Kind MessageKind
	// Text holds the body of text messages, streamed or final.
	Text string
	// Data holds the structured payload for non-text kinds.
	Data any
	// FormType is set for form messages only.
	FormType string
	// Ephemeral messages are purged automatically once superseded.
	Ephemeral bool
	// Streaming is true while text deltas are still being appended.
	Streaming bool
	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time
}
