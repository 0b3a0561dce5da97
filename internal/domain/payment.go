package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentStatusCreated, PaymentStatusAuthorized, PaymentStatusCaptured,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is one payment attempt against an Order, keyed by the
// gateway payment id. At most one row exists per gateway payment id.
type Payment struct {
	ID               int64         `json:"id" db:"id"`
	GatewayPaymentID string        `json:"razorpay_payment_id" db:"razorpay_payment_id"`
	OrderID          int64         `json:"order_id" db:"order_id"`
	Amount           int64         `json:"amount" db:"amount"`
	Currency         string        `json:"currency" db:"currency"`
	Status           PaymentStatus `json:"status" db:"status"`
	Method           *string       `json:"method,omitempty" db:"method"`
	Email            *string       `json:"email,omitempty" db:"email"`
	Contact          *string       `json:"contact,omitempty" db:"contact"`
	Fees             *int64        `json:"fees,omitempty" db:"fees"`
	Tax              *int64        `json:"tax,omitempty" db:"tax"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}
