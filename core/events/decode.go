package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by Decode for records whose type discriminator
// is not part of the contract. Callers drop the single record and continue.
var ErrUnknownKind = errors.New("unknown event kind")

// envelope is the superset of wire fields across all record kinds. Only the
// fields relevant to the decoded type are read.
type envelope struct {
	Type string `json:"type"`

	Message string `json:"message,omitempty"`
	Role    string `json:"role,omitempty"`
	Delta   string `json:"delta,omitempty"`

	Items      json.RawMessage `json:"items,omitempty"`
	Total      float64         `json:"total,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	Categories []string        `json:"categories,omitempty"`
	Query      string          `json:"query,omitempty"`
	Order      *Order          `json:"order,omitempty"`

	Options []QuickReplyOption `json:"options,omitempty"`

	URL     string  `json:"url,omitempty"`
	OrderID string  `json:"order_id,omitempty"`
	Amount  float64 `json:"amount,omitempty"`

	FormType  string      `json:"form_type,omitempty"`
	FormTypes []string    `json:"form_types,omitempty"`
	Fields    []FormField `json:"fields,omitempty"`
}

// Decode parses one tagged wire record into a typed event.
//
// Malformed JSON and unknown type discriminators are reported as errors;
// they never panic and never affect subsequent records.
func Decode(data []byte) (Event, error) {
	var wire envelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse event record: %w", err)
	}

	switch Kind(wire.Type) {
	case KindRunStarted:
		return NewRunStarted(), nil
	case KindRunFinished:
		return NewRunFinished(), nil
	case KindRunError:
		return NewRunError(wire.Message), nil
	case KindActivityStart:
		return NewActivityStart(wire.Message), nil
	case KindActivityEnd:
		return NewActivityEnd(), nil
	case KindTextMessageStart:
		return NewTextMessageStart(wire.Role), nil
	case KindTextMessageContent:
		return NewTextMessageContent(wire.Delta), nil
	case KindTextMessageEnd:
		return NewTextMessageEnd(), nil
	case KindCartData:
		items, err := decodeItems[CartItem](wire.Items)
		if err != nil {
			return nil, err
		}
		return NewCartData(items, wire.Total, wire.Currency), nil
	case KindMenuData:
		items, err := decodeItems[MenuItem](wire.Items)
		if err != nil {
			return nil, err
		}
		return NewMenuData(wire.Categories, items), nil
	case KindSearchResults:
		items, err := decodeItems[MenuItem](wire.Items)
		if err != nil {
			return nil, err
		}
		return NewSearchResults(wire.Query, items), nil
	case KindOrderData:
		if wire.Order == nil {
			return nil, fmt.Errorf("order snapshot record is missing its order payload")
		}
		return NewOrderData(*wire.Order), nil
	case KindQuickReplies:
		return NewQuickReplies(wire.Options), nil
	case KindPaymentLink:
		return NewPaymentLink(wire.URL, wire.OrderID, wire.Amount), nil
	case KindPaymentSuccess:
		return NewPaymentSuccess(wire.OrderID, wire.Amount), nil
	case KindReceiptLink:
		return NewReceiptLink(wire.URL, wire.OrderID), nil
	case KindFormRequest:
		return NewFormRequest(wire.FormType, wire.Fields), nil
	case KindFormDismiss:
		formTypes := wire.FormTypes
		if len(formTypes) == 0 && wire.FormType != "" {
			formTypes = []string{wire.FormType}
		}
		return NewFormDismiss(formTypes...), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, wire.Type)
}

func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse item list: %w", err)
	}
	return items, nil
}
