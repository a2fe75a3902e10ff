package socket

import (
	"errors"
	"fmt"
	"strings"
)

// Socket errors.
var (
	ErrNotOpen         = errors.New("socket not open")
	ErrClosed          = errors.New("socket closed")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrKeepAlive       = errors.New("keepalive timeout")
)

// Mode is the payload framing hint passed to the socket.
type Mode uint8

const (
	// ModeUnset means no mode was configured.
	ModeUnset Mode = iota

	// ModeBinary sends payloads as binary frames.
	ModeBinary

	// ModeText sends payloads as text frames.
	ModeText
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeText:
		return "text"
	default:
		return "unset"
	}
}

// ParseMode parses "binary" or "text" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin":
		return ModeBinary, nil
	case "text", "txt":
		return ModeText, nil
	default:
		return ModeUnset, fmt.Errorf("unknown payload mode: %q (use: binary, text)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Message is an opaque payload moved by a socket.
type Message struct {
	Mode Mode
	Data []byte
}

// Handler receives the notifications of one socket handle.
// Notifications from a single handle arrive in order, from a goroutine
// other than the one that called Dial.
type Handler struct {
	OnOpen    func()
	OnMessage func(msg Message)
	OnError   func(err error)
	OnClose   func(code int, reason string)
}

// Socket is one duplex connection handle. It is never reused: every
// connection attempt gets a fresh handle.
type Socket interface {
	// ID returns a unique identifier for this handle.
	ID() string

	// Send writes one message.
	Send(msg Message) error

	// Close requests the connection to close. The close notification is
	// delivered through the handler.
	Close() error
}

// Dialer creates socket handles.
type Dialer interface {
	// Dial starts connecting to endpoint and returns the handle at once.
	// Open, message, error and close notifications are delivered later
	// through h; Dial must not invoke h before it returns.
	Dial(endpoint string, mode Mode, h Handler) (Socket, error)
}
