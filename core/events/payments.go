package events

const (
	// KindPaymentLink identifies a checkout link for the current order.
	KindPaymentLink Kind = "PAYMENT_LINK"
	// KindPaymentSuccess identifies a payment confirmation.
	KindPaymentSuccess Kind = "PAYMENT_SUCCESS"
	// KindReceiptLink identifies a receipt document link.
	KindReceiptLink Kind = "RECEIPT_LINK"
)

// PaymentLink carries a checkout URL for the current order.
type PaymentLink struct {
	Base
	URL     string
	OrderID string
	Amount  float64
}

// NewPaymentLink creates a payment link event.
func NewPaymentLink(url, orderID string, amount float64) PaymentLink {
	return PaymentLink{Base: NewBase(KindPaymentLink), URL: url, OrderID: orderID, Amount: amount}
}

// PaymentSuccess confirms a completed payment.
type PaymentSuccess struct {
	Base
	OrderID string
	Amount  float64
}

// NewPaymentSuccess creates a payment success event.
func NewPaymentSuccess(orderID string, amount float64) PaymentSuccess {
	return PaymentSuccess{Base: NewBase(KindPaymentSuccess), OrderID: orderID, Amount: amount}
}

// ReceiptLink carries a link to the receipt for a completed order.
type ReceiptLink struct {
	Base
	URL     string
	OrderID string
}

// NewReceiptLink creates a receipt link event.
func NewReceiptLink(url, orderID string) ReceiptLink {
	return ReceiptLink{Base: NewBase(KindReceiptLink), URL: url, OrderID: orderID}
}
