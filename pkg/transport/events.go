package transport

import (
	"github.com/redial-io/redial-go/pkg/socket"
)

// EventType names a lifecycle event.
type EventType string

// Lifecycle events.
const (
	EventOpen      EventType = "open"
	EventReconnect EventType = "reconnect"
	EventMessage   EventType = "message"
	EventError     EventType = "error"
	EventClose     EventType = "close"
)

// Event is the payload delivered to listeners.
type Event struct {
	Type EventType

	// Message is set for EventMessage.
	Message *socket.Message

	// Err is set for EventError.
	Err error

	// Code and Reason are set for EventClose.
	Code   int
	Reason string
}

// Listener handles a lifecycle event.
type Listener func(e Event)
