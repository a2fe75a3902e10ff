package log

import (
	"time"
)

// MaxFrameCapture is the number of payload bytes kept in a FrameEvent.
const MaxFrameCapture = 256

// Event is one trace record of a transport's lifecycle.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the socket handle (UUID). Empty when no
	// handle exists yet.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates frame flow. Only meaningful for frames.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Endpoint is the connection target.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// Generation numbers connection attempts within one transport.
	Generation uint64 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Lifecycle   *LifecycleEvent   `cbor:"12,keyasint,omitempty"`
	Retry       *RetryEvent       `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerSocket is the socket handle (raw frames, close codes).
	LayerSocket Layer = 0
	// LayerTransport is the connection state machine.
	LayerTransport Layer = 1
	// LayerRetry is the reconnect episode driver.
	LayerRetry Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerSocket:
		return "SOCKET"
	case LayerTransport:
		return "TRANSPORT"
	case LayerRetry:
		return "RETRY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a payload frame.
	CategoryMessage Category = 0
	// CategoryLifecycle indicates an event emitted to the owner.
	CategoryLifecycle Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
	// CategoryRetry indicates a retry tick or budget exhaustion.
	CategoryRetry Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryRetry:
		return "RETRY"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one payload frame.
type FrameEvent struct {
	// Size is the payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the payload (truncated to MaxFrameCapture bytes).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Mode is the payload mode name ("binary" or "text").
	Mode string `cbor:"4,keyasint,omitempty"`
}

// NewFrameEvent captures data, truncating it to MaxFrameCapture bytes.
func NewFrameEvent(data []byte, mode string) *FrameEvent {
	fe := &FrameEvent{Size: len(data), Mode: mode}
	if len(data) > MaxFrameCapture {
		fe.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// StateChangeEvent captures a transport state transition.
type StateChangeEvent struct {
	// OldState is the previous state.
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// LifecycleEvent captures an event delivered to the transport owner.
type LifecycleEvent struct {
	// Event is the event name ("open", "reconnect", "close", ...).
	Event string `cbor:"1,keyasint"`

	// Code is the close code for close events.
	Code int `cbor:"2,keyasint,omitempty"`

	// Reason is the close reason for close events.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// RetryEvent captures one tick of a reconnect episode.
type RetryEvent struct {
	// Episode numbers reconnect episodes within one transport.
	Episode int `cbor:"1,keyasint"`

	// Attempt is the attempt number within the episode (1-based).
	Attempt int `cbor:"2,keyasint"`

	// MaxAttempts is the attempt budget of the episode.
	MaxAttempts int `cbor:"3,keyasint"`

	// Exhausted is set when the tick found the budget used up.
	Exhausted bool `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the close code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
