package repository

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("payment already exists")
	ErrDuplicateLead    = errors.New("lead already exists")
)
