package domain

import "encoding/json"

type EventType string

const (
	EventPaymentAuthorized EventType = "payment.authorized"
	EventPaymentCaptured   EventType = "payment.captured"
	EventPaymentFailed     EventType = "payment.failed"
	EventOrderPaid         EventType = "order.paid"
	EventRefundProcessed   EventType = "refund.processed"
)

// WebhookEvent is the verified envelope of one gateway delivery. The
// payload shape depends on the event tag; the service decodes it per
// tag into one of the typed entities below.
type WebhookEvent struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// PaymentEntity is payload.payment.entity of payment.* events.
type PaymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Fee      int64  `json:"fee"`
	Tax      int64  `json:"tax"`
}

// OrderEntity is payload.order.entity of order.paid events.
type OrderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Receipt    string `json:"receipt"`
}

// RefundEntity is payload.refund.entity of refund.processed events.
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type PaymentPayload struct {
	Payment struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment"`
}

type OrderPayload struct {
	Order struct {
		Entity OrderEntity `json:"entity"`
	} `json:"order"`
}

type RefundPayload struct {
	Refund struct {
		Entity RefundEntity `json:"entity"`
	} `json:"refund"`
}
