package admin

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("status transition not allowed")
)
