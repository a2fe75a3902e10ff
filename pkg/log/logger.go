package log

// Logger receives trace events.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent
	// use and must not block for long; the transport calls Log inline.
	Log(event Event)
}

// NoopLogger discards all events. It is the zero-cost default.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(event Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
