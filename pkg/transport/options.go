package transport

import (
	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/redial-io/redial-go/pkg/log"
	"github.com/redial-io/redial-go/pkg/socket"
)

// Logger is the operational log sink of a Transport.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Option customizes a Transport.
type Option func(*Transport)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d socket.Dialer) Option {
	return func(t *Transport) {
		t.dialer = d
	}
}

// WithLogger sets the operational logger.
func WithLogger(l Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithClock sets the clock used for deadlines and retry delays.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) {
		t.clock = c
	}
}

// WithTraceLogger records the lifecycle to l.
func WithTraceLogger(l log.Logger) Option {
	return func(t *Transport) {
		t.trace = l
	}
}

// WithRetryPolicy sets a factory for the delay policy of each reconnect
// episode. The default is a constant backoff of Config.Retry.Delay.
func WithRetryPolicy(newPolicy func() backoff.BackOff) Option {
	return func(t *Transport) {
		t.newPolicy = newPolicy
	}
}

func defaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
