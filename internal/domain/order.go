package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "created"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusRefunded OrderStatus = "refunded"
)

func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusFailed, OrderStatusRefunded:
		return true
	}
	return false
}

// Order mirrors a Razorpay order. GatewayOrderID is the id minted by
// Razorpay and is unique and immutable once the row exists.
type Order struct {
	ID             int64             `json:"id" db:"id"`
	GatewayOrderID string            `json:"razorpay_order_id" db:"razorpay_order_id"`
	Amount         int64             `json:"amount" db:"amount"`
	Currency       string            `json:"currency" db:"currency"`
	Status         OrderStatus       `json:"status" db:"status"`
	Product        string            `json:"product" db:"product"`
	Receipt        string            `json:"receipt" db:"receipt"`
	Notes          map[string]string `json:"notes,omitempty" db:"notes"`
	BookingID      *int64            `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}
