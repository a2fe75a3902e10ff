package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter writes trace events to a zap.Logger at debug level.
// Errors are written at warn level.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a ZapAdapter. A nil logger discards events.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAdapter{logger: logger.Named("trace")}
}

// Log writes the event as one structured entry.
func (a *ZapAdapter) Log(event Event) {
	level := zapcore.DebugLevel
	if event.Error != nil {
		level = zapcore.WarnLevel
	}
	ce := a.logger.Check(level, event.Category.String())
	if ce == nil {
		return
	}

	fields := []zap.Field{
		zap.String("conn_id", event.ConnectionID),
		zap.String("layer", event.Layer.String()),
	}
	if event.Endpoint != "" {
		fields = append(fields, zap.String("endpoint", event.Endpoint))
	}
	if event.Generation != 0 {
		fields = append(fields, zap.Uint64("generation", event.Generation))
	}

	switch {
	case event.Frame != nil:
		fields = append(fields,
			zap.String("direction", event.Direction.String()),
			zap.Int("frame_size", event.Frame.Size),
			zap.String("mode", event.Frame.Mode),
			zap.Bool("truncated", event.Frame.Truncated),
		)
	case event.StateChange != nil:
		fields = append(fields,
			zap.String("old_state", event.StateChange.OldState),
			zap.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			fields = append(fields, zap.String("reason", event.StateChange.Reason))
		}
	case event.Lifecycle != nil:
		fields = append(fields, zap.String("event", event.Lifecycle.Event))
		if event.Lifecycle.Code != 0 {
			fields = append(fields,
				zap.Int("code", event.Lifecycle.Code),
				zap.String("reason", event.Lifecycle.Reason),
			)
		}
	case event.Retry != nil:
		fields = append(fields,
			zap.Int("episode", event.Retry.Episode),
			zap.Int("attempt", event.Retry.Attempt),
			zap.Int("max_attempts", event.Retry.MaxAttempts),
			zap.Bool("exhausted", event.Retry.Exhausted),
		)
	case event.Error != nil:
		fields = append(fields,
			zap.String("error_layer", event.Error.Layer.String()),
			zap.String("error_msg", event.Error.Message),
			zap.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			fields = append(fields, zap.Int("error_code", *event.Error.Code))
		}
	}

	ce.Write(fields...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*ZapAdapter)(nil)
