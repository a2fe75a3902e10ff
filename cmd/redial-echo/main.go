// Command redial-echo runs a WebSocket echo server for exercising
// reconnecting clients.
//
// Every frame is echoed back with its original type. The server can drop
// connections on a schedule and refuse upgrades, so reconnect behavior can
// be observed end to end.
//
// Usage:
//
//	redial-echo [--addr :9000] [--path /] [--drop-every N] [--reject] [--log-level info]
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
