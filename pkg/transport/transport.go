package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/redial-io/redial-go/pkg/emitter"
	"github.com/redial-io/redial-go/pkg/log"
	"github.com/redial-io/redial-go/pkg/retry"
	"github.com/redial-io/redial-go/pkg/socket"
)

// Transport maintains one logical connection to an endpoint.
// It is safe for concurrent use.
type Transport struct {
	cfg       Config
	dialer    socket.Dialer
	clock     clockwork.Clock
	logger    Logger
	trace     log.Logger
	newPolicy func() backoff.BackOff
	events    *emitter.Emitter[EventType, Event]

	mu            sync.Mutex
	state         State
	rest          State // state to fall back to when an attempt fails
	sock          socket.Socket
	current       *attempt
	gen           uint64
	positiveClose bool
	everConnected bool
	episode       *episode
	episodes      int
}

// attempt is one connection attempt on a fresh socket handle.
// Fields other than done/err are guarded by Transport.mu.
type attempt struct {
	gen      uint64
	id       string
	sock     socket.Socket
	opened   bool
	byOwner  bool // closed through Close
	lastErr  error
	deadline clockwork.Timer

	once sync.Once
	done chan struct{}
	err  error
}

func (a *attempt) settle(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

// episode is one reconnect episode. It settles with the result of the
// first attempt that finishes, or with ErrRetryBudgetExhausted.
type episode struct {
	id    int
	retry *retry.Retry

	once sync.Once
	done chan struct{}
	err  error
}

func (e *episode) settle(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// New creates a Transport in StateIdle. No connection is made until
// Connect or Reconnect is called.
func New(cfg Config, opts ...Option) (*Transport, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		cfg:   cfg,
		state: StateIdle,
		rest:  StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = defaultLogger()
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	if t.trace == nil {
		t.trace = log.NoopLogger{}
	}
	if t.dialer == nil {
		t.dialer = socket.NewWebSocketDialer(socket.WebSocketConfig{
			HandshakeTimeout:   cfg.HandshakeTimeout,
			Header:             cfg.Header(),
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			KeepAlive:          cfg.KeepAlive,
		}, t.logger)
	}
	t.events = emitter.New[EventType, Event](t.logger)

	return t, nil
}

// Connect starts a connection attempt on a new socket handle and waits
// for it to open. It fails with ErrConnectTimeout when the first-connect
// deadline passes first, and with ErrConnectFailed when the socket
// reports failure. If ctx ends first Connect returns ctx.Err() while the
// attempt continues in the background.
//
// Connect after Close leaves the closed state.
func (t *Transport) Connect(ctx context.Context) error {
	a, err := t.startAttempt(true)
	if err != nil {
		return err
	}
	return wait(ctx, a.done, func() error { return a.err })
}

// Send forwards payload with the configured payload mode. It fails with
// ErrNotConnected if no socket handle exists. The handle does not have
// to be open; a handle that is still connecting or already closed
// reports its own error.
func (t *Transport) Send(payload []byte) error {
	return t.SendMessage(socket.Message{Data: payload})
}

// SendMessage forwards msg. An unset mode selects the configured one.
func (t *Transport) SendMessage(msg socket.Message) error {
	t.mu.Lock()
	sock := t.sock
	if sock == nil {
		t.mu.Unlock()
		return ErrNotConnected
	}
	if msg.Mode == socket.ModeUnset {
		msg.Mode = t.cfg.PayloadMode
	}
	t.record(t.current, log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerSocket,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(msg.Data, msg.Mode.String()),
	})
	t.mu.Unlock()

	if err := sock.Send(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close closes the connection and stops any reconnect episode. The
// resulting close notification emits EventClose and does not retry.
// Close is a no-op with a warning when no socket handle exists or the
// transport is already closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.sock == nil {
		t.mu.Unlock()
		t.logger.Warnf("transport: close ignored, no connection [endpoint:%s]", t.cfg.Endpoint)
		return nil
	}
	if t.state.closed() {
		state := t.state
		t.mu.Unlock()
		t.logger.Warnf("transport: close ignored, already closed [endpoint:%s state:%s]", t.cfg.Endpoint, state)
		return nil
	}

	t.positiveClose = true
	if t.current != nil {
		t.current.byOwner = true
	}
	ep := t.episode
	t.episode = nil
	sock := t.sock
	t.setState(StateClosed, "closed by owner")
	t.mu.Unlock()

	if ep != nil {
		ep.retry.Enable(false)
		ep.settle(ErrClosed)
	}
	if err := sock.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Reconnect starts a reconnect episode and waits for its first attempt
// to finish. It returns ErrRetryBudgetExhausted if the budget runs out
// before any attempt finished.
//
// Called on an open transport, Reconnect closes it and returns without
// reopening.
func (t *Transport) Reconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateOpen {
		t.mu.Unlock()
		t.logger.Infof("transport: reconnect on open connection closes it [endpoint:%s]", t.cfg.Endpoint)
		return t.Close()
	}
	t.positiveClose = false
	t.rest = StateAwaitingRetry
	if t.state != StateConnecting {
		t.setState(StateAwaitingRetry, "reconnect requested")
	}
	t.mu.Unlock()

	ep := t.startEpisode()
	return wait(ctx, ep.done, func() error { return ep.err })
}

// On registers a listener and returns a function that removes it.
func (t *Transport) On(event EventType, fn Listener) func() {
	return t.events.On(event, emitter.Listener[Event](fn))
}

// OnAsync registers a promise-style listener; see Events.
func (t *Transport) OnAsync(event EventType, fn emitter.AsyncListener[Event]) func() {
	return t.events.OnAsync(event, fn)
}

// Events returns the underlying event channel.
func (t *Transport) Events() *emitter.Emitter[EventType, Event] {
	return t.events
}

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Opened reports a live connection.
func (t *Transport) Opened() bool { return t.State().opened() }

// Disconnected reports that no live connection exists.
func (t *Transport) Disconnected() bool { return t.State().disconnected() }

// Closed reports that no connection exists and no reconnect is in progress.
func (t *Transport) Closed() bool { return t.State().closed() }

// Endpoint returns the connection target.
func (t *Transport) Endpoint() string { return t.cfg.Endpoint }

// ConnectionID returns the ID of the current socket handle, or "".
func (t *Transport) ConnectionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return ""
	}
	return t.current.id
}

// Episodes returns how many reconnect episodes have started.
func (t *Transport) Episodes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episodes
}

// startAttempt dials a new socket handle. owner is set for Connect
// calls, which may leave the closed state.
func (t *Transport) startAttempt(owner bool) (*attempt, error) {
	t.mu.Lock()
	switch {
	case t.state == StateOpen:
		t.mu.Unlock()
		return nil, ErrAlreadyConnected
	case t.state == StateClosed && !owner:
		t.mu.Unlock()
		return nil, ErrClosed
	}

	if owner {
		t.positiveClose = false
	}
	if t.state != StateConnecting {
		t.rest = t.state
	}
	t.gen++
	a := &attempt{gen: t.gen, done: make(chan struct{})}
	t.current = a
	t.setState(StateConnecting, "connect")

	// Dial must not invoke the handler before returning, so holding the
	// lock here cannot deadlock.
	sock, err := t.dialer.Dial(t.cfg.Endpoint, t.cfg.PayloadMode, t.handler(a))
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrConnectFailed, t.cfg.Endpoint, err)
		t.setState(t.rest, "dial failed")
		t.recordError(a, log.LayerSocket, err, "dial")
		t.mu.Unlock()

		a.settle(err)
		return a, err
	}

	a.sock = sock
	a.id = sock.ID()
	t.sock = sock
	a.deadline = t.clock.AfterFunc(t.cfg.FirstConnectTimeout, func() { t.onDeadline(a) })
	t.mu.Unlock()

	t.logger.Debugf("transport: dialing [endpoint:%s gen:%d id:%s]", t.cfg.Endpoint, a.gen, a.id)
	return a, nil
}

func (t *Transport) handler(a *attempt) socket.Handler {
	return socket.Handler{
		OnOpen:    func() { t.onOpen(a) },
		OnMessage: func(msg socket.Message) { t.onMessage(a, msg) },
		OnError:   func(err error) { t.onError(a, err) },
		OnClose:   func(code int, reason string) { t.onClose(a, code, reason) },
	}
}

func (t *Transport) onOpen(a *attempt) {
	t.mu.Lock()
	if a != t.current {
		stopTimer(a.deadline)
		t.mu.Unlock()
		t.logger.Debugf("transport: closing superseded connection [gen:%d id:%s]", a.gen, a.id)
		a.settle(fmt.Errorf("%w: %s: superseded by a newer attempt", ErrConnectFailed, t.cfg.Endpoint))
		closeQuietly(a.sock)
		return
	}
	if t.state == StateClosed {
		stopTimer(a.deadline)
		t.mu.Unlock()
		a.settle(ErrClosed)
		closeQuietly(a.sock)
		return
	}

	a.opened = true
	stopTimer(a.deadline)
	t.setState(StateOpen, "socket open")

	ev := EventOpen
	if t.everConnected {
		ev = EventReconnect
	}
	t.everConnected = true
	t.recordLifecycle(a, ev, 0, "")
	t.mu.Unlock()

	t.logger.Infof("transport: connected [endpoint:%s event:%s id:%s]", t.cfg.Endpoint, ev, a.id)
	a.settle(nil)
	t.events.EmitSafe(ev, Event{Type: ev})
}

func (t *Transport) onMessage(a *attempt, msg socket.Message) {
	t.mu.Lock()
	if a != t.current {
		t.mu.Unlock()
		return
	}
	t.record(a, log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerSocket,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(msg.Data, msg.Mode.String()),
	})
	t.mu.Unlock()

	t.events.EmitSafe(EventMessage, Event{Type: EventMessage, Message: &msg})
}

func (t *Transport) onError(a *attempt, err error) {
	t.mu.Lock()
	if a != t.current {
		t.mu.Unlock()
		return
	}
	a.lastErr = err
	t.recordError(a, log.LayerSocket, err, "socket")
	t.mu.Unlock()

	t.logger.Warnf("transport: socket error [endpoint:%s id:%s]: %v", t.cfg.Endpoint, a.id, err)
	t.events.EmitSafe(EventError, Event{Type: EventError, Err: err})
}

func (t *Transport) onClose(a *attempt, code int, reason string) {
	t.mu.Lock()
	stopTimer(a.deadline)

	if a != t.current {
		if a.opened {
			// A connection closed by the owner and already replaced by a
			// new Connect. It ends without a reconnect episode.
			t.recordLifecycle(a, EventClose, code, reason)
			t.mu.Unlock()

			t.logger.Infof("transport: previous connection closed [endpoint:%s id:%s code:%d reason:%s]", t.cfg.Endpoint, a.id, code, reason)
			t.events.EmitSafe(EventClose, Event{Type: EventClose, Code: code, Reason: reason})
			return
		}
		err := t.failure(a, code, reason)
		t.mu.Unlock()
		a.settle(err)
		return
	}

	if !a.opened {
		if t.state == StateClosed {
			// Closed by the owner while connecting.
			t.recordLifecycle(a, EventClose, code, reason)
			t.mu.Unlock()

			a.settle(ErrClosed)
			t.events.EmitSafe(EventClose, Event{Type: EventClose, Code: code, Reason: reason})
			return
		}
		if t.state == StateConnecting {
			t.setState(t.rest, "connect failed")
		}
		err := t.failure(a, code, reason)
		t.mu.Unlock()

		a.settle(err)
		return
	}

	positive := t.positiveClose || a.byOwner
	if positive {
		t.setState(StateClosed, "closed by owner")
	} else {
		t.setState(StateAwaitingRetry, fmt.Sprintf("socket closed (%d %s)", code, reason))
	}
	t.recordLifecycle(a, EventClose, code, reason)
	t.mu.Unlock()

	t.logger.Infof("transport: disconnected [endpoint:%s code:%d reason:%s positive:%t]", t.cfg.Endpoint, code, reason, positive)
	t.events.EmitSafe(EventClose, Event{Type: EventClose, Code: code, Reason: reason})
	if !positive {
		t.startEpisode()
	}
}

func (t *Transport) onDeadline(a *attempt) {
	t.mu.Lock()
	if a.opened {
		t.mu.Unlock()
		return
	}
	if a == t.current && t.state == StateConnecting {
		t.setState(t.rest, "connect timeout")
	}
	err := fmt.Errorf("%w after %v: %s", ErrConnectTimeout, t.cfg.FirstConnectTimeout, t.cfg.Endpoint)
	t.recordError(a, log.LayerTransport, err, "connect")
	t.mu.Unlock()

	t.logger.Warnf("transport: connect timed out [endpoint:%s id:%s timeout:%v]", t.cfg.Endpoint, a.id, t.cfg.FirstConnectTimeout)
	a.settle(err)
}

// failure describes why an attempt that never opened ended.
func (t *Transport) failure(a *attempt, code int, reason string) error {
	if a.lastErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, t.cfg.Endpoint, a.lastErr)
	}
	return fmt.Errorf("%w: %s: closed before open (%d %s)", ErrConnectFailed, t.cfg.Endpoint, code, reason)
}

// startEpisode replaces any running reconnect episode with a new one and
// runs its first tick.
func (t *Transport) startEpisode() *episode {
	ep := &episode{done: make(chan struct{})}

	var policy backoff.BackOff
	if t.newPolicy != nil {
		policy = t.newPolicy()
	}
	ep.retry = retry.New(retry.Config{
		MaxAttempts: t.cfg.Retry.MaxAttempts,
		Delay:       t.cfg.Retry.Delay,
		Policy:      policy,
		Clock:       t.clock,
		Logger:      t.logger,
		OnExhausted: func(attempts int) { t.onExhausted(ep, attempts) },
	})

	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		t.logger.Debugf("transport: reconnect skipped, closed by owner [endpoint:%s]", t.cfg.Endpoint)
		ep.settle(ErrClosed)
		return ep
	}
	prev := t.episode
	t.episodes++
	ep.id = t.episodes
	t.episode = ep
	t.mu.Unlock()

	if prev != nil {
		prev.retry.Enable(false)
		go func() {
			<-ep.done
			prev.settle(ep.err)
		}()
	}

	t.logger.Infof("transport: reconnecting [endpoint:%s episode:%d max:%d delay:%v]",
		t.cfg.Endpoint, ep.id, t.cfg.Retry.MaxAttempts, t.cfg.Retry.Delay)

	ep.retry.Enable(true)
	ep.retry.Attempt(func() { t.retryTick(ep) })
	return ep
}

// retryTick is the action of a reconnect episode.
func (t *Transport) retryTick(ep *episode) {
	if !ep.retry.Enable(t.shouldRetry(ep)) {
		return
	}

	t.mu.Lock()
	t.record(nil, log.Event{
		Layer:    log.LayerRetry,
		Category: log.CategoryRetry,
		Retry: &log.RetryEvent{
			Episode:     ep.id,
			Attempt:     ep.retry.Attempts() + 1,
			MaxAttempts: ep.retry.MaxAttempts(),
		},
	})
	t.mu.Unlock()

	a, err := t.startAttempt(false)
	if a == nil {
		ep.settle(err)
		return
	}
	go func() {
		<-a.done
		ep.settle(a.err)
	}()
}

// shouldRetry reports whether ep still owns recovery.
func (t *Transport) shouldRetry(ep *episode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episode == ep && t.state != StateOpen && t.state != StateClosed
}

func (t *Transport) onExhausted(ep *episode, attempts int) {
	t.mu.Lock()
	t.record(nil, log.Event{
		Layer:    log.LayerRetry,
		Category: log.CategoryRetry,
		Retry: &log.RetryEvent{
			Episode:     ep.id,
			Attempt:     attempts,
			MaxAttempts: ep.retry.MaxAttempts(),
			Exhausted:   true,
		},
	})
	t.mu.Unlock()

	t.logger.Warnf("transport: reconnect gave up [endpoint:%s episode:%d attempts:%d]", t.cfg.Endpoint, ep.id, attempts)
	ep.settle(fmt.Errorf("%w after %d attempts: %s", ErrRetryBudgetExhausted, attempts, t.cfg.Endpoint))
}

// setState must be called with t.mu held.
func (t *Transport) setState(to State, reason string) {
	from := t.state
	if from == to {
		return
	}
	t.state = to
	t.record(t.current, log.Event{
		Layer:    log.LayerTransport,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
	t.logger.Debugf("transport: state %s -> %s (%s) [endpoint:%s]", from, to, reason, t.cfg.Endpoint)
}

func wait(ctx context.Context, done <-chan struct{}, result func() error) error {
	select {
	case <-done:
		return result()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func stopTimer(timer clockwork.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

func closeQuietly(s socket.Socket) {
	if s != nil {
		_ = s.Close()
	}
}
