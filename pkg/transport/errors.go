package transport

import "errors"

// Transport errors.
var (
	ErrConnectTimeout       = errors.New("connect timeout")
	ErrConnectFailed        = errors.New("connect failed")
	ErrNotConnected         = errors.New("not connected")
	ErrAlreadyConnected     = errors.New("already connected")
	ErrClosed               = errors.New("transport closed")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	ErrInvalidConfig        = errors.New("invalid config")
)
