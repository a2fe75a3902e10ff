package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redial-io/redial-go/pkg/log"
	"github.com/redial-io/redial-go/pkg/socket"
	"github.com/redial-io/redial-go/pkg/transport"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := transport.New(transport.Config{PayloadMode: socket.ModeBinary})
	assert.ErrorIs(t, err, transport.ErrInvalidConfig)

	_, err = transport.New(transport.Config{Endpoint: testEndpoint})
	assert.ErrorIs(t, err, transport.ErrInvalidConfig)
}

func TestNewIsIdle(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.Equal(t, transport.StateIdle, h.tr.State())
	assert.False(t, h.tr.Opened())
	assert.True(t, h.tr.Disconnected())
	assert.True(t, h.tr.Closed())
	assert.Equal(t, testEndpoint, h.tr.Endpoint())
	assert.Empty(t, h.tr.ConnectionID())
	assert.Equal(t, 0, h.net.Dials())
}

func TestConnectOpens(t *testing.T) {
	h := newHarness(t, testConfig())

	c := h.connect()

	assert.Equal(t, transport.StateOpen, h.tr.State())
	assert.True(t, h.tr.Opened())
	assert.False(t, h.tr.Disconnected())
	assert.False(t, h.tr.Closed())
	assert.Equal(t, c.id, h.tr.ConnectionID())
	assert.Equal(t, socket.ModeBinary, c.mode)
	assert.Equal(t, []transport.EventType{transport.EventOpen}, h.ev.Types())
}

func TestConnectWhileOpen(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect()

	err := h.tr.Connect(context.Background())
	assert.ErrorIs(t, err, transport.ErrAlreadyConnected)
	assert.Equal(t, 1, h.net.Dials())
}

func TestConnectTimeout(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(context.Background()) }()
	h.net.Conn(0)

	// Only the first-connect deadline is pending.
	h.advance(1, 10*time.Second)

	err := receive(t, errCh)
	require.ErrorIs(t, err, transport.ErrConnectTimeout)
	assert.Contains(t, err.Error(), testEndpoint)

	assert.False(t, h.tr.Opened())
	assert.True(t, h.tr.Disconnected())
	assert.Equal(t, transport.StateIdle, h.tr.State())
	assert.Empty(t, h.ev.Types())
	assert.Equal(t, 0, h.tr.Episodes(), "a failed first connect does not retry on its own")
}

func TestConnectTimeoutRealClock(t *testing.T) {
	cfg := testConfig()
	cfg.FirstConnectTimeout = 50 * time.Millisecond

	n := newFakeNetwork(t)
	tr, err := transport.New(cfg, transport.WithDialer(n.dialer))
	require.NoError(t, err)

	start := time.Now()
	err = tr.Connect(context.Background())

	assert.ErrorIs(t, err, transport.ErrConnectTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, tr.Opened())
}

func TestConnectDialError(t *testing.T) {
	h := newHarness(t, testConfig())
	dialErr := errors.New("no route to host")
	h.net.SetDialError(dialErr)

	err := h.tr.Connect(context.Background())

	assert.ErrorIs(t, err, transport.ErrConnectFailed)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, transport.StateIdle, h.tr.State())
	assert.Empty(t, h.ev.Types())
}

func TestConnectFailsWhenClosedBeforeOpen(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(context.Background()) }()
	c := h.net.Conn(0)

	refused := errors.New("connection refused")
	c.Error(refused)
	c.Drop(1006, "")

	err := receive(t, errCh)
	assert.ErrorIs(t, err, transport.ErrConnectFailed)
	assert.ErrorIs(t, err, refused)

	// The socket error is reported, the close of a never-opened handle is not.
	assert.Equal(t, []transport.EventType{transport.EventError}, h.ev.Types())
	assert.Equal(t, transport.StateIdle, h.tr.State())
	assert.Equal(t, 0, h.tr.Episodes())
}

func TestConnectContextCanceled(t *testing.T) {
	h := newHarness(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(ctx) }()
	c := h.net.Conn(0)

	cancel()
	assert.ErrorIs(t, receive(t, errCh), context.Canceled)
	assert.Equal(t, transport.StateConnecting, h.tr.State())

	// The attempt keeps going in the background.
	c.Open()
	assert.True(t, h.tr.Opened())
	assert.Equal(t, []transport.EventType{transport.EventOpen}, h.ev.Types())
}

func TestUnexpectedCloseReconnects(t *testing.T) {
	h := newHarness(t, testConfig())
	c1 := h.connect()

	c1.Drop(1006, "abnormal closure")

	// The first tick of the episode runs at once.
	assert.Equal(t, 1, h.tr.Episodes())
	c2 := h.net.Conn(1)
	assert.Equal(t, transport.StateConnecting, h.tr.State())
	assert.True(t, h.tr.Disconnected())
	assert.False(t, h.tr.Closed())

	// First reconnect attempt fails; the transport waits for the next tick.
	c2.Drop(1006, "refused")
	assert.Equal(t, transport.StateAwaitingRetry, h.tr.State())
	assert.True(t, h.tr.Disconnected())
	assert.False(t, h.tr.Closed())

	// Retry timer only.
	h.advance(1, 5*time.Second)
	c3 := h.net.Conn(2)
	c3.Open()

	assert.Equal(t, []transport.EventType{
		transport.EventOpen,
		transport.EventClose,
		transport.EventReconnect,
	}, h.ev.Types())
	assert.Equal(t, 1, h.ev.Count(transport.EventReconnect))
	assert.True(t, h.tr.Opened())
	assert.False(t, h.tr.Disconnected())
	assert.Equal(t, c3.id, h.tr.ConnectionID())

	closeEvent := h.ev.Events()[1]
	assert.Equal(t, 1006, closeEvent.Code)
	assert.Equal(t, "abnormal closure", closeEvent.Reason)

	// The next tick sees an open connection and ends the chain.
	h.advance(1, 5*time.Second)
	h.clock.Advance(time.Minute)
	assert.Never(t, func() bool { return h.net.Dials() > 3 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, h.tr.Episodes())
}

func TestOneEpisodePerUnexpectedClose(t *testing.T) {
	h := newHarness(t, testConfig())
	c1 := h.connect()

	c1.Drop(1006, "")
	c2 := h.net.Conn(1)
	c2.Open()
	assert.Equal(t, 1, h.tr.Episodes())

	c2.Drop(1001, "going away")
	c3 := h.net.Conn(2)
	c3.Open()
	assert.Equal(t, 2, h.tr.Episodes())

	assert.Equal(t, []transport.EventType{
		transport.EventOpen,
		transport.EventClose,
		transport.EventReconnect,
		transport.EventClose,
		transport.EventReconnect,
	}, h.ev.Types())
}

func TestCloseDoesNotReconnect(t *testing.T) {
	h := newHarness(t, testConfig())
	c := h.connect()

	require.NoError(t, h.tr.Close())

	assert.Equal(t, transport.StateClosed, h.tr.State())
	assert.True(t, h.tr.Closed())
	assert.True(t, h.tr.Disconnected())
	assert.Equal(t, 1, c.CloseCalls())

	require.Eventually(t, func() bool { return h.ev.Count(transport.EventClose) == 1 },
		time.Second, time.Millisecond)

	h.clock.Advance(time.Minute)
	assert.Never(t, func() bool { return h.net.Dials() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 0, h.tr.Episodes())
	assert.Equal(t, transport.StateClosed, h.tr.State())
}

func TestCloseStopsEpisode(t *testing.T) {
	h := newHarness(t, testConfig())
	c1 := h.connect()

	c1.Drop(1006, "")
	c2 := h.net.Conn(1)

	require.NoError(t, h.tr.Close())
	assert.Equal(t, 1, c2.CloseCalls())

	// c2 never opened; closing it while connecting still reports CLOSE.
	require.Eventually(t, func() bool { return h.ev.Count(transport.EventClose) == 2 },
		time.Second, time.Millisecond)

	h.advance(0, time.Minute)
	assert.Never(t, func() bool { return h.net.Dials() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.True(t, h.tr.Closed())
}

func TestCloseWithoutConnectionWarns(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.NoError(t, h.tr.Close())
	assert.Equal(t, transport.StateIdle, h.tr.State())
	require.Len(t, h.warnings(), 1)
	assert.Contains(t, h.warnings()[0], "no connection")
}

func TestCloseTwiceWarns(t *testing.T) {
	h := newHarness(t, testConfig())
	c := h.connect()

	require.NoError(t, h.tr.Close())
	require.NoError(t, h.tr.Close())

	assert.Equal(t, 1, c.CloseCalls())
	require.Len(t, h.warnings(), 1)
	assert.Contains(t, h.warnings()[0], "already closed")
}

func TestConnectAfterClose(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect()
	require.NoError(t, h.tr.Close())
	require.Eventually(t, func() bool { return h.ev.Count(transport.EventClose) == 1 },
		time.Second, time.Millisecond)

	h.connect()

	assert.True(t, h.tr.Opened())
	assert.Equal(t, []transport.EventType{
		transport.EventOpen,
		transport.EventClose,
		transport.EventReconnect,
	}, h.ev.Types())
}

func TestConnectBeforeOldCloseArrives(t *testing.T) {
	h := newHarness(t, testConfig())
	c1 := h.connect()
	c1.HoldClose()
	require.NoError(t, h.tr.Close())

	h.connect()
	c1.Drop(1000, "normal closure")

	assert.True(t, h.tr.Opened())
	assert.Equal(t, 0, h.tr.Episodes())
	assert.Equal(t, []transport.EventType{
		transport.EventOpen,
		transport.EventReconnect,
		transport.EventClose,
	}, h.ev.Types())
	closed := h.ev.Events()[2]
	assert.Equal(t, 1000, closed.Code)
	assert.Equal(t, "normal closure", closed.Reason)
}

func TestOpenAfterCloseStopsDeadline(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(context.Background()) }()
	c := h.net.Conn(0)
	c.HoldClose()
	require.NoError(t, h.tr.Close())

	c.Open()
	require.ErrorIs(t, receive(t, errCh), transport.ErrClosed)
	assert.Equal(t, 2, c.CloseCalls())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 0), "connect deadline still pending")

	h.clock.Advance(time.Minute)
	for _, w := range h.warnings() {
		assert.NotContains(t, w, "timed out")
	}
}

func TestReconnectAfterClose(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect()
	require.NoError(t, h.tr.Close())
	require.Eventually(t, func() bool { return h.ev.Count(transport.EventClose) == 1 },
		time.Second, time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Reconnect(context.Background()) }()
	h.net.Conn(1).Open()

	require.NoError(t, receive(t, errCh))
	assert.True(t, h.tr.Opened())
	assert.Equal(t, 1, h.tr.Episodes())
	assert.Equal(t, transport.EventReconnect, h.ev.Types()[2])
}

func TestReconnectFromIdle(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Reconnect(context.Background()) }()
	h.net.Conn(0).Open()

	require.NoError(t, receive(t, errCh))
	// Nothing was connected before, so this is the first OPEN.
	assert.Equal(t, []transport.EventType{transport.EventOpen}, h.ev.Types())
}

func TestReconnectWhileOpenCloses(t *testing.T) {
	// Reconnect on a live connection closes it and does not reopen.
	h := newHarness(t, testConfig())
	c := h.connect()

	require.NoError(t, h.tr.Reconnect(context.Background()))

	assert.Equal(t, 1, c.CloseCalls())
	assert.Equal(t, transport.StateClosed, h.tr.State())
	require.Eventually(t, func() bool { return h.ev.Count(transport.EventClose) == 1 },
		time.Second, time.Millisecond)
	assert.Never(t, func() bool { return h.net.Dials() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestReconnectBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.FirstConnectTimeout = time.Hour
	cfg.Retry.MaxAttempts = 2
	h := newHarness(t, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Reconnect(context.Background()) }()

	// Tick 1 dials; its handle never answers.
	h.net.Conn(0)
	h.advance(2, 5*time.Second)

	// Tick 2 dials again, superseding the first attempt.
	h.net.Conn(1)
	h.advance(3, 5*time.Second)

	// Tick 3 finds the budget used up.
	err := receive(t, errCh)
	require.ErrorIs(t, err, transport.ErrRetryBudgetExhausted)
	assert.Contains(t, err.Error(), "2 attempts")
	assert.Equal(t, 2, h.net.Dials())
	assert.Equal(t, 1, h.tr.Episodes())
}

func TestReconnectReturnsFirstAttemptResult(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Reconnect(context.Background()) }()

	h.net.Conn(0).Drop(1006, "refused")

	err := receive(t, errCh)
	assert.ErrorIs(t, err, transport.ErrConnectFailed)
	assert.Equal(t, transport.StateAwaitingRetry, h.tr.State())

	// The episode keeps going after the caller returned.
	h.advance(1, 5*time.Second)
	h.net.Conn(1).Open()
	assert.True(t, h.tr.Opened())
}

func TestStaleOpenIsClosed(t *testing.T) {
	h := newHarness(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- h.tr.Connect(context.Background()) }()
	c1 := h.net.Conn(0)
	h.advance(1, 10*time.Second)
	require.ErrorIs(t, receive(t, errCh), transport.ErrConnectTimeout)

	go func() { errCh <- h.tr.Connect(context.Background()) }()
	c2 := h.net.Conn(1)

	// The superseded handle opens late.
	c1.Open()
	require.Eventually(t, func() bool { return c1.CloseCalls() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, transport.StateConnecting, h.tr.State())
	assert.Empty(t, h.ev.Types())

	c2.Open()
	require.NoError(t, receive(t, errCh))
	assert.Equal(t, []transport.EventType{transport.EventOpen}, h.ev.Types())
	assert.Equal(t, c2.id, h.tr.ConnectionID())
}

func TestStaleNotificationsIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	c1 := h.connect()
	c1.Drop(1006, "")
	c2 := h.net.Conn(1)
	c2.Open()

	before := h.ev.Types()
	c1.Message("late")
	c1.Error(errors.New("late"))

	assert.Equal(t, before, h.ev.Types())
	assert.True(t, h.tr.Opened())
}

func TestErrorKeepsConnectionOpen(t *testing.T) {
	h := newHarness(t, testConfig())
	c := h.connect()

	boom := errors.New("boom")
	c.Error(boom)

	assert.True(t, h.tr.Opened())
	events := h.ev.Events()
	require.Len(t, events, 2)
	assert.Equal(t, transport.EventError, events[1].Type)
	assert.ErrorIs(t, events[1].Err, boom)
}

func TestMessageEvent(t *testing.T) {
	h := newHarness(t, testConfig())
	c := h.connect()

	c.Message(`{"hello":"world"}`)

	events := h.ev.Events()
	require.Len(t, events, 2)
	require.NotNil(t, events[1].Message)
	assert.Equal(t, []byte(`{"hello":"world"}`), events[1].Message.Data)
	assert.Equal(t, socket.ModeText, events[1].Message.Mode)
}

func TestSendNotConnected(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.ErrorIs(t, h.tr.Send([]byte("x")), transport.ErrNotConnected)
}

func TestSendUsesPayloadMode(t *testing.T) {
	h := newHarness(t, testConfig())
	c := h.connect()

	require.NoError(t, h.tr.Send([]byte{0x01, 0x02}))
	require.NoError(t, h.tr.SendMessage(socket.Message{Mode: socket.ModeText, Data: []byte("hi")}))

	sent := c.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, socket.Message{Mode: socket.ModeBinary, Data: []byte{0x01, 0x02}}, sent[0])
	assert.Equal(t, socket.Message{Mode: socket.ModeText, Data: []byte("hi")}, sent[1])
}

func TestSendWhileConnectingIsForwarded(t *testing.T) {
	// Send does not check for an open connection; the handle answers.
	h := newHarness(t, testConfig())

	go func() { _ = h.tr.Connect(context.Background()) }()
	c := h.net.Conn(0)

	err := h.tr.Send([]byte("early"))

	assert.ErrorIs(t, err, socket.ErrNotOpen)
	assert.Len(t, c.Sent(), 1)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	h := newHarness(t, testConfig())
	h.tr.On(transport.EventOpen, func(transport.Event) { panic("listener bug") })

	var after bool
	h.tr.On(transport.EventOpen, func(transport.Event) { after = true })

	h.connect()

	assert.True(t, after)
	assert.True(t, h.tr.Opened())
	assert.Equal(t, 1, h.logs.FilterMessageSnippet("listener panicked").Len())
}

func TestListenerRemoval(t *testing.T) {
	h := newHarness(t, testConfig())

	calls := 0
	off := h.tr.On(transport.EventMessage, func(transport.Event) { calls++ })
	c := h.connect()

	c.Message("one")
	off()
	c.Message("two")

	assert.Equal(t, 1, calls)
}

func TestOnAsync(t *testing.T) {
	h := newHarness(t, testConfig())

	got := make(chan transport.EventType, 1)
	h.tr.OnAsync(transport.EventOpen, func(e transport.Event, complete func(), _ func(error)) {
		got <- e.Type
		complete()
	})

	h.connect()
	assert.Equal(t, transport.EventOpen, <-got)
}

func TestTraceRecordsLifecycle(t *testing.T) {
	var mu sync.Mutex
	var events []log.Event
	trace := log.LoggerFunc(func(e log.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	h := newHarness(t, testConfig(), transport.WithTraceLogger(trace))
	c := h.connect()
	require.NoError(t, h.tr.Send([]byte("ping")))
	c.Drop(1006, "")

	mu.Lock()
	defer mu.Unlock()

	var states []string
	var lifecycle []string
	var frames, retries int
	for _, e := range events {
		assert.Equal(t, testEndpoint, e.Endpoint)
		assert.False(t, e.Timestamp.IsZero())
		switch {
		case e.StateChange != nil:
			states = append(states, e.StateChange.OldState+">"+e.StateChange.NewState)
		case e.Lifecycle != nil:
			lifecycle = append(lifecycle, e.Lifecycle.Event)
			assert.Equal(t, c.id, e.ConnectionID)
			assert.Equal(t, uint64(1), e.Generation)
		case e.Frame != nil:
			frames++
			assert.Equal(t, log.DirectionOut, e.Direction)
			assert.Equal(t, 4, e.Frame.Size)
		case e.Retry != nil:
			retries++
			assert.Equal(t, 1, e.Retry.Episode)
			assert.Equal(t, 1, e.Retry.Attempt)
			assert.Equal(t, 3, e.Retry.MaxAttempts)
		}
	}

	assert.Equal(t, []string{
		"IDLE>CONNECTING",
		"CONNECTING>OPEN",
		"OPEN>AWAITING_RETRY",
		"AWAITING_RETRY>CONNECTING",
	}, states)
	assert.Equal(t, []string{"open", "close"}, lifecycle)
	assert.Equal(t, 1, frames)
	assert.Equal(t, 1, retries)
}
