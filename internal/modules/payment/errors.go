package payment

import "errors"

var (
	ErrInvalidEvent    = errors.New("invalid webhook event")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOrderMismatch   = errors.New("webhook order does not match payment")
	ErrAmountMismatch  = errors.New("amount mismatch")
)
