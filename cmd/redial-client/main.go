// Command redial-client holds a reconnecting WebSocket connection and
// offers an interactive console for sending payloads and driving the
// connection by hand.
//
// Usage:
//
//	redial-client --endpoint ws://localhost:9000/ [flags]
//	redial-client --config client.yaml [flags]
//
// Lifecycle events (open, reconnect, message, error, close) are printed as
// they happen. With --trace the full lifecycle is also recorded to a CBOR
// trace file that redial-log can view.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
