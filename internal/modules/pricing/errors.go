package pricing

import "errors"

var (
	ErrUnknownService = errors.New("unknown service type")
	ErrNotPriceable   = errors.New("service has no list price")
)
