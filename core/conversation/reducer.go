// Package conversation holds the client-side conversation state and the
// reducer that is its sole mutator.
//
// The reducer is a total state-transition function: any event, including
// kinds it does not understand, yields a valid next state. It is sensitive
// only to the order events are delivered in, never to wall-clock time except
// to timestamp new messages. Its rules are written to be safe under either
// interleaving of the two transport channels: snapshot kinds replace rather
// than append, and form requests deduplicate by type.
package conversation

import (
	"slices"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/relishlabs/maitre-client/core/events"
	"github.com/relishlabs/maitre-client/core/forms"
)

// State is the rendered conversation at a point in time. Snapshots returned
// by the reducer are deep copies; holders may not observe later mutation.
type State struct {
	// Messages in insertion order.
	Messages []Message
	// Activity is the free-text progress status, empty when absent.
	Activity string
	// IsStreaming is true between run start and run end.
	IsStreaming bool
	// CurrentStreamID is the message currently being appended to, zero when
	// none. Valid only while IsStreaming is true.
	CurrentStreamID int64
}

// Reducer owns a State and mutates it exclusively through Apply.
type Reducer struct {
	mu sync.Mutex

	state  State
	nextID int64

	subscribers map[int]func(State)
	nextSubID   int
}

// NewReducer creates a reducer with an empty conversation.
func NewReducer() *Reducer {
	return &Reducer{nextID: 1, subscribers: map[int]func(State){}}
}

// Apply transitions the conversation by one event and returns the next
// state. Subscribers are notified with the same snapshot.
func (r *Reducer) Apply(event events.Event) State {
	r.mu.Lock()
	r.applyLocked(event)
	snapshot := r.snapshotLocked()
	subscribers := make([]func(State), 0, len(r.subscribers))
	for _, subscriber := range r.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	r.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(snapshot)
	}
	return snapshot
}

// State returns a deep snapshot of the current conversation.
func (r *Reducer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe registers a state-change callback and returns its cancel
// function. Callbacks run outside the reducer lock, in Apply's goroutine.
func (r *Reducer) Subscribe(subscriber func(State)) (cancel func()) {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = subscriber
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
}

func (r *Reducer) applyLocked(event events.Event) {
	switch typedEvent := event.(type) {
	case events.RunStarted:
		r.state.IsStreaming = true
		r.state.Activity = ""
	case events.RunFinished:
		r.endRunLocked()
	case events.RunError:
		r.endRunLocked()
		r.appendLocked(Message{
			Role: RoleSystem,
			Kind: KindText,
			Text: typedEvent.Message,
		}, typedEvent)
	case events.ActivityStart:
		// A stale progress update can arrive after the run already ended;
		// it must not resurrect the activity indicator.
		if !r.state.IsStreaming {
			return
		}
		r.state.Activity = typedEvent.Message
	case events.ActivityEnd:
		if !r.state.IsStreaming {
			return
		}
		r.state.Activity = ""
	case events.TextMessageStart:
		r.removeKindLocked(KindQuickReplies)
		r.closeStreamLocked()
		id := r.appendLocked(Message{
			Role:      parseRole(typedEvent.Role),
			Kind:      KindText,
			Streaming: true,
		}, typedEvent)
		r.state.CurrentStreamID = id
	case events.TextMessageContent:
		r.appendDeltaLocked(typedEvent.Delta)
	case events.TextMessageEnd:
		r.closeStreamLocked()
	case events.CartData:
		r.replaceSnapshotLocked(KindCart, typedEvent, typedEvent)
	case events.MenuData:
		r.replaceSnapshotLocked(KindMenu, typedEvent, typedEvent)
	case events.SearchResults:
		r.replaceSnapshotLocked(KindSearchResults, typedEvent, typedEvent)
	case events.OrderData:
		r.replaceSnapshotLocked(KindOrder, typedEvent, typedEvent)
	case events.QuickReplies:
		r.removeKindLocked(KindQuickReplies)
		r.appendLocked(Message{
			Role:      RoleAssistant,
			Kind:      KindQuickReplies,
			Data:      typedEvent,
			Ephemeral: true,
		}, typedEvent)
	case events.QuickRepliesCleared:
		r.removeKindLocked(KindQuickReplies)
	case events.PaymentLink:
		r.appendLocked(Message{Role: RoleAssistant, Kind: KindPaymentLink, Data: typedEvent}, typedEvent)
	case events.PaymentSuccess:
		r.appendLocked(Message{Role: RoleAssistant, Kind: KindPaymentSuccess, Data: typedEvent}, typedEvent)
	case events.ReceiptLink:
		r.appendLocked(Message{Role: RoleAssistant, Kind: KindReceipt, Data: typedEvent}, typedEvent)
	case events.FormRequest:
		if r.hasFormLocked(typedEvent.FormType) {
			return
		}
		r.appendLocked(Message{
			Role:      RoleAssistant,
			Kind:      KindForm,
			Data:      typedEvent,
			FormType:  typedEvent.FormType,
			Ephemeral: forms.Ephemeral(forms.Type(typedEvent.FormType)),
		}, typedEvent)
	case events.FormDismiss:
		r.dismissFormsLocked(typedEvent.FormTypes)
	case events.UserMessage:
		r.removeKindLocked(KindQuickReplies)
		r.appendLocked(Message{
			Role: RoleUser,
			Kind: KindText,
			Text: typedEvent.Text,
		}, typedEvent)
	}
}

func (r *Reducer) endRunLocked() {
	r.closeStreamLocked()
	r.state.IsStreaming = false
	r.state.Activity = ""
}

// closeStreamLocked finalizes the open streaming message, if any, keeping
// the invariant that at most one message is streaming at a time.
func (r *Reducer) closeStreamLocked() {
	if r.state.CurrentStreamID == 0 {
		return
	}

	for i := range r.state.Messages {
		if r.state.Messages[i].ID == r.state.CurrentStreamID {
			r.state.Messages[i].Streaming = false
			break
		}
	}
	r.state.CurrentStreamID = 0
}

func (r *Reducer) appendDeltaLocked(delta string) {
	// Deltas without a matching open stream are dropped.
	if r.state.CurrentStreamID == 0 {
		return
	}

	for i := range r.state.Messages {
		if r.state.Messages[i].ID == r.state.CurrentStreamID && r.state.Messages[i].Streaming {
			r.state.Messages[i].Text += delta
			return
		}
	}
}

// replaceSnapshotLocked removes every message of the same structured kind
// before inserting the fresh one, so the rendered log never shows two
// competing snapshots. Pending quick replies are purged at the same time.
func (r *Reducer) replaceSnapshotLocked(kind MessageKind, data any, event events.Event) {
	r.removeKindLocked(kind)
	r.removeKindLocked(KindQuickReplies)
	r.appendLocked(Message{Role: RoleAssistant, Kind: kind, Data: data}, event)
}

func (r *Reducer) appendLocked(message Message, event events.Event) int64 {
	message.ID = r.nextID
	r.nextID++
	message.CreatedAt = event.Timestamp()
	r.state.Messages = append(r.state.Messages, message)
	return message.ID
}

func (r *Reducer) removeKindLocked(kind MessageKind) {
	r.state.Messages = slices.DeleteFunc(r.state.Messages, func(message Message) bool {
		return message.Kind == kind
	})
}

func (r *Reducer) hasFormLocked(formType string) bool {
	return slices.ContainsFunc(r.state.Messages, func(message Message) bool {
		return message.Kind == KindForm && message.FormType == formType
	})
}

// dismissFormsLocked removes forms matching the named types and, as a guard
// against a dismiss arriving for the wrong type after a fast resubmit, every
// ephemeral form regardless of type.
func (r *Reducer) dismissFormsLocked(formTypes []string) {
	r.state.Messages = slices.DeleteFunc(r.state.Messages, func(message Message) bool {
		if message.Kind != KindForm {
			return false
		}
		return message.Ephemeral || slices.Contains(formTypes, message.FormType)
	})
}

func (r *Reducer) snapshotLocked() State {
	snapshot := State{
		Activity:        r.state.Activity,
		IsStreaming:     r.state.IsStreaming,
		CurrentStreamID: r.state.CurrentStreamID,
	}
	if err := copier.CopyWithOption(&snapshot.Messages, &r.state.Messages, copier.Option{DeepCopy: true}); err != nil {
		snapshot.Messages = slices.Clone(r.state.Messages)
	}
	return snapshot
}

func parseRole(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(role)
	}
	return RoleAssistant
}
