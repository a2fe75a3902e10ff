package emitter

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Logger receives listener failure reports.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Errorf(format string, args ...any)
}

// Listener handles an event synchronously.
type Listener[P any] func(payload P)

// AsyncListener handles an event and settles the emitter's pending result
// by calling complete or fail.
type AsyncListener[P any] func(payload P, complete func(), fail func(error))

type entry[P any] struct {
	id    uint64
	sync  Listener[P]
	async AsyncListener[P]
}

// Emitter dispatches events keyed by K carrying payloads of type P.
// It is safe for concurrent use.
type Emitter[K comparable, P any] struct {
	mu        sync.RWMutex
	listeners map[K][]entry[P]
	nextID    uint64
	logger    Logger
}

// New creates an Emitter that reports listener failures to logger.
// A nil logger selects a production zap logger writing to stderr.
func New[K comparable, P any](logger Logger) *Emitter[K, P] {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Emitter[K, P]{
		listeners: make(map[K][]entry[P]),
		logger:    logger,
	}
}

// On registers fn for event and returns a function that removes it.
func (e *Emitter[K, P]) On(event K, fn Listener[P]) func() {
	return e.add(event, entry[P]{sync: fn})
}

// OnAsync registers a promise-style listener for event.
func (e *Emitter[K, P]) OnAsync(event K, fn AsyncListener[P]) func() {
	return e.add(event, entry[P]{async: fn})
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter[K, P]) ListenerCount(event K) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}

// EmitSafe invokes every listener for event. Panics are recovered and
// logged with the event name; they never reach the caller.
func (e *Emitter[K, P]) EmitSafe(event K, payload P) {
	e.dispatch(event, payload, noop, noopFail)
}

// EmitAsPromise invokes every listener for event and returns a channel
// that receives the first outcome reported through complete (nil) or
// fail (the error). Later outcomes are dropped.
func (e *Emitter[K, P]) EmitAsPromise(event K, payload P) <-chan error {
	result := make(chan error, 1)
	var once sync.Once
	settle := func(err error) {
		once.Do(func() { result <- err })
	}
	e.dispatch(event, payload,
		func() { settle(nil) },
		func(err error) { settle(err) },
	)
	return result
}

// Await waits for a result from EmitAsPromise or for ctx to end.
func Await(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter[K, P]) add(event K, en entry[P]) func() {
	e.mu.Lock()
	e.nextID++
	en.id = e.nextID
	e.listeners[event] = append(e.listeners[event], en)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(event, en.id) })
	}
}

func (e *Emitter[K, P]) remove(event K, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.listeners[event]
	for i, en := range list {
		if en.id == id {
			next := make([]entry[P], 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(e.listeners, event)
			} else {
				e.listeners[event] = next
			}
			return
		}
	}
}

// dispatch runs listeners on a snapshot so they can re-enter the emitter.
func (e *Emitter[K, P]) dispatch(event K, payload P, complete func(), fail func(error)) {
	e.mu.RLock()
	snapshot := e.listeners[event]
	e.mu.RUnlock()

	for _, en := range snapshot {
		e.invoke(event, en, payload, complete, fail)
	}
}

func (e *Emitter[K, P]) invoke(event K, en entry[P], payload P, complete func(), fail func(error)) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("emit: event listener panicked [event:%v]: %v", event, r)
		}
	}()

	if en.async != nil {
		en.async(payload, complete, fail)
		return
	}
	en.sync(payload)
}

func noop()          {}
func noopFail(error) {}

func defaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
