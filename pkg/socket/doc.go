// Package socket defines the duplex socket primitive used by the transport
// and provides its WebSocket implementation.
//
// A Dialer returns a Socket handle immediately and reports the connection
// lifecycle asynchronously through a Handler:
//
//	OnOpen     the connection is established
//	OnMessage  a frame arrived
//	OnError    a transient or dial error occurred
//	OnClose    the connection ended (always the last notification)
//
// A handle that fails to connect reports OnError followed by OnClose and
// never reports OnOpen.
//
// WebSocketDialer is backed by gorilla/websocket. Each handle gets a UUID
// so that trace records can be correlated per connection attempt.
package socket
