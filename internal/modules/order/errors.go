package order

import "errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentCreationFailed = errors.New("payment creation failed")
)
