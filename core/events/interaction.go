package events

const (
	// KindQuickReplies identifies a tappable option set.
	KindQuickReplies Kind = "QUICK_REPLIES"
	// KindQuickRepliesCleared identifies client-local purging of option sets.
	KindQuickRepliesCleared Kind = "QUICK_REPLIES_CLEARED"
	// KindFormRequest identifies a request to render an input form.
	KindFormRequest Kind = "FORM_REQUEST"
	// KindFormDismiss identifies removal of one or more rendered forms.
	KindFormDismiss Kind = "FORM_DISMISS"
)

// QuickReplyOption is one tappable reply.
type QuickReplyOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// QuickReplies carries an ephemeral option set. A fresh set replaces any
// pending one; sending any user input purges pending sets first.
type QuickReplies struct {
	Base
	Options []QuickReplyOption
}

// NewQuickReplies creates a quick replies event.
func NewQuickReplies(options []QuickReplyOption) QuickReplies {
	return QuickReplies{Base: NewBase(KindQuickReplies), Options: options}
}

// QuickRepliesCleared purges any pending option set. It is client-local,
// applied before any new user input leaves the client.
type QuickRepliesCleared struct{ Base }

// NewQuickRepliesCleared creates a quick replies cleared event.
func NewQuickRepliesCleared() QuickRepliesCleared {
	return QuickRepliesCleared{Base: NewBase(KindQuickRepliesCleared)}
}

// FormField describes one input field of a requested form.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// FormRequest asks the client to render an input form. Requests are
// deduplicated by form type while a matching form is still rendered.
type FormRequest struct {
	Base
	FormType string
	Fields   []FormField
}

// NewFormRequest creates a form request event.
func NewFormRequest(formType string, fields []FormField) FormRequest {
	return FormRequest{Base: NewBase(KindFormRequest), FormType: formType, Fields: fields}
}

// FormDismiss removes rendered forms matching the named types. Ephemeral
// forms are removed regardless of type.
type FormDismiss struct {
	Base
	FormTypes []string
}

// NewFormDismiss creates a form dismiss event.
func NewFormDismiss(formTypes ...string) FormDismiss {
	return FormDismiss{Base: NewBase(KindFormDismiss), FormTypes: formTypes}
}
