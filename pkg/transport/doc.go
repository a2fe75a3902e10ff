// Package transport maintains a single logical duplex connection over an
// unreliable link.
//
// A Transport owns one socket handle at a time, reports its lifecycle as
// events, and retries connection establishment after unexpected
// disconnects. Payloads are opaque; the transport never interprets them.
//
// # State Machine
//
//	IDLE ──Connect──▶ CONNECTING ──open──▶ OPEN
//	                      │                 │
//	                  timeout/fail     unexpected close
//	                      ▼                 ▼
//	                 (previous state)  AWAITING_RETRY ──retry tick──▶ CONNECTING
//
//	any state ──Close──▶ CLOSED (terminal until Connect or Reconnect)
//
// Opened, Disconnected and Closed are derived from the state:
//
//	State            Opened  Disconnected  Closed
//	IDLE             false   true          true
//	CONNECTING       false   true          false
//	OPEN             true    false         false
//	AWAITING_RETRY   false   true          false
//	CLOSED           false   true          true
//
// # Events
//
//	EventOpen       first successful open
//	EventReconnect  every later open
//	EventMessage    a frame arrived (Event.Message)
//	EventError      a transient socket error (Event.Err); the connection stays up
//	EventClose      an opened connection ended (Event.Code, Event.Reason)
//
// Listeners run synchronously on the socket's goroutine. A panicking
// listener is recovered and logged; it never affects the transport.
//
// # Reconnect Episodes
//
// Each unexpected close of an open connection starts one reconnect
// episode driven by a fresh retry.Retry: up to MaxAttempts connection
// attempts, one per Delay. The episode ends when a connection opens, when
// the owner calls Close, or when the budget is used up. Attempts are not
// cancellable; an attempt superseded by a newer one is ignored, and if it
// opens late its socket is closed.
//
// # Usage
//
//	cfg := transport.Config{Endpoint: "wss://example.com/feed", PayloadMode: socket.ModeText}
//	t, err := transport.New(cfg, transport.WithLogger(zapLogger.Sugar()))
//	if err != nil {
//	    return err
//	}
//	t.On(transport.EventMessage, func(e transport.Event) {
//	    handle(e.Message.Data)
//	})
//	if err := t.Connect(ctx); err != nil {
//	    return err
//	}
//	defer t.Close()
package transport
