package transport

// State is the connection state of a Transport.
type State uint8

const (
	// StateIdle indicates no connection has been attempted yet.
	StateIdle State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateOpen indicates a live connection.
	StateOpen

	// StateAwaitingRetry indicates a connection was lost and a reconnect
	// episode owns recovery.
	StateAwaitingRetry

	// StateClosed indicates the owner closed the transport.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateAwaitingRetry:
		return "AWAITING_RETRY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// opened reports a live connection.
func (s State) opened() bool { return s == StateOpen }

// disconnected reports that no live connection exists.
func (s State) disconnected() bool { return s != StateOpen }

// closed reports a state with no connection and no recovery in progress.
func (s State) closed() bool { return s == StateIdle || s == StateClosed }
