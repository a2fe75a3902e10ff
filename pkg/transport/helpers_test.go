package transport_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/redial-io/redial-go/pkg/socket"
	"github.com/redial-io/redial-go/pkg/socket/mocks"
	"github.com/redial-io/redial-go/pkg/transport"
)

const testEndpoint = "ws://device.test:8443/events"

// fakeConn is the remote side of one dialed socket handle. Its methods
// deliver notifications to the transport synchronously.
type fakeConn struct {
	id   string
	mode socket.Mode
	h    socket.Handler
	sock *mocks.MockSocket

	mu         sync.Mutex
	opened     bool
	sent       []socket.Message
	closeCalls int
	holdClose  bool
	closeOnce  sync.Once
}

func (c *fakeConn) Open() {
	c.mu.Lock()
	c.opened = true
	c.mu.Unlock()
	c.h.OnOpen()
}

func (c *fakeConn) Message(data string) {
	c.h.OnMessage(socket.Message{Mode: socket.ModeText, Data: []byte(data)})
}

func (c *fakeConn) Error(err error) {
	c.h.OnError(err)
}

// HoldClose keeps Close from delivering the close notification, which
// then only arrives through Drop.
func (c *fakeConn) HoldClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdClose = true
}

// Drop ends the connection from the remote side.
func (c *fakeConn) Drop(code int, reason string) {
	c.finish(code, reason)
}

func (c *fakeConn) finish(code int, reason string) {
	c.closeOnce.Do(func() {
		c.h.OnClose(code, reason)
	})
}

func (c *fakeConn) send(msg socket.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	if !c.opened {
		return socket.ErrNotOpen
	}
	return nil
}

func (c *fakeConn) close() error {
	c.mu.Lock()
	c.closeCalls++
	hold := c.holdClose
	c.mu.Unlock()
	if !hold {
		go c.finish(1000, "normal closure")
	}
	return nil
}

func (c *fakeConn) Sent() []socket.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]socket.Message(nil), c.sent...)
}

func (c *fakeConn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// fakeNetwork answers Dial with a fresh fakeConn per attempt.
type fakeNetwork struct {
	t      *testing.T
	dialer *mocks.MockDialer

	mu      sync.Mutex
	conns   []*fakeConn
	dialErr error
}

func newFakeNetwork(t *testing.T) *fakeNetwork {
	n := &fakeNetwork{t: t, dialer: mocks.NewMockDialer(t)}
	n.dialer.EXPECT().Dial(testEndpoint, mock.Anything, mock.Anything).RunAndReturn(n.dial).Maybe()
	return n
}

func (n *fakeNetwork) dial(_ string, mode socket.Mode, h socket.Handler) (socket.Socket, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dialErr != nil {
		return nil, n.dialErr
	}

	c := &fakeConn{
		id:   fmt.Sprintf("conn-%d", len(n.conns)+1),
		mode: mode,
		h:    h,
	}
	m := mocks.NewMockSocket(n.t)
	m.EXPECT().ID().Return(c.id).Maybe()
	m.EXPECT().Send(mock.Anything).RunAndReturn(c.send).Maybe()
	m.EXPECT().Close().RunAndReturn(c.close).Maybe()
	c.sock = m

	n.conns = append(n.conns, c)
	return m, nil
}

func (n *fakeNetwork) SetDialError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dialErr = err
}

func (n *fakeNetwork) Dials() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

// Conn waits for the i-th dial (zero-based) and returns its connection.
func (n *fakeNetwork) Conn(i int) *fakeConn {
	n.t.Helper()
	require.Eventually(n.t, func() bool { return n.Dials() > i }, 2*time.Second, time.Millisecond,
		"dial %d never happened", i+1)

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[i]
}

// eventLog records every event a transport emits.
type eventLog struct {
	mu     sync.Mutex
	events []transport.Event
}

func recordEvents(tr *transport.Transport) *eventLog {
	l := &eventLog{}
	for _, typ := range []transport.EventType{
		transport.EventOpen,
		transport.EventReconnect,
		transport.EventMessage,
		transport.EventError,
		transport.EventClose,
	} {
		tr.On(typ, func(e transport.Event) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, e)
		})
	}
	return l
}

func (l *eventLog) Types() []transport.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]transport.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func (l *eventLog) Events() []transport.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transport.Event(nil), l.events...)
}

func (l *eventLog) Count(typ transport.EventType) int {
	n := 0
	for _, got := range l.Types() {
		if got == typ {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	net   *fakeNetwork
	clock *clockwork.FakeClock
	tr    *transport.Transport
	ev    *eventLog
	logs  *observer.ObservedLogs
}

func testConfig() transport.Config {
	return transport.Config{
		Endpoint:            testEndpoint,
		PayloadMode:         socket.ModeBinary,
		FirstConnectTimeout: 10 * time.Second,
		Retry: transport.RetryConfig{
			MaxAttempts: 3,
			Delay:       5 * time.Second,
		},
	}
}

func newHarness(t *testing.T, cfg transport.Config, opts ...transport.Option) *harness {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		t:     t,
		net:   newFakeNetwork(t),
		clock: clockwork.NewFakeClock(),
		logs:  logs,
	}

	opts = append([]transport.Option{
		transport.WithDialer(h.net.dialer),
		transport.WithClock(h.clock),
		transport.WithLogger(zap.New(core).Sugar()),
	}, opts...)

	tr, err := transport.New(cfg, opts...)
	require.NoError(t, err)
	h.tr = tr
	h.ev = recordEvents(tr)
	return h
}

// connect runs Connect and opens the dialed handle.
func (h *harness) connect() *fakeConn {
	h.t.Helper()

	idx := h.net.Dials()
	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(context.Background()) }()

	c := h.net.Conn(idx)
	c.Open()
	require.NoError(h.t, receive(h.t, errCh))
	return c
}

// advance moves the fake clock once the expected timers are pending.
func (h *harness) advance(timers int, d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(h.t, h.clock.BlockUntilContext(ctx, timers))
	h.clock.Advance(d)
}

func (h *harness) warnings() []string {
	var out []string
	for _, e := range h.logs.FilterLevelExact(zap.WarnLevel).All() {
		out = append(out, e.Message)
	}
	return out
}

func receive(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return nil
	}
}
