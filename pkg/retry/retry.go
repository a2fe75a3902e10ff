package retry

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Retry defaults.
const (
	// DefaultMaxAttempts is the attempt budget of one episode.
	DefaultMaxAttempts = 3

	// DefaultDelay is the fixed gap between attempt schedulings.
	DefaultDelay = 5 * time.Second
)

// Logger receives budget exhaustion reports.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Errorf(format string, args ...any)
}

// Config configures a Retry. Zero values select the defaults.
type Config struct {
	MaxAttempts int
	Delay       time.Duration

	// Policy yields the delay before each next tick.
	// Defaults to a constant backoff of Delay.
	Policy backoff.BackOff

	// Clock schedules ticks. Defaults to the real clock.
	Clock clockwork.Clock

	Logger Logger

	// OnExhausted is called once the budget is used up and a tick is refused.
	OnExhausted func(attempts int)
}

// Retry drives one retry episode. Create a fresh Retry per episode.
type Retry struct {
	mu sync.Mutex

	maxAttempts int
	delay       time.Duration
	policy      backoff.BackOff
	clock       clockwork.Clock
	logger      Logger
	onExhausted func(attempts int)

	attempts int
	ticks    int
	proceed  bool
	timer    clockwork.Timer
}

// New creates a disabled Retry.
func New(cfg Config) *Retry {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Policy == nil {
		cfg.Policy = backoff.NewConstantBackOff(cfg.Delay)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	cfg.Policy.Reset()

	return &Retry{
		maxAttempts: cfg.MaxAttempts,
		delay:       cfg.Delay,
		policy:      cfg.Policy,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		onExhausted: cfg.OnExhausted,
	}
}

// Enable sets whether the chain should continue and returns shouldRetry.
// Enable(false) also stops the pending timer.
func (r *Retry) Enable(shouldRetry bool) bool {
	r.mu.Lock()
	r.proceed = shouldRetry
	r.mu.Unlock()

	if !shouldRetry {
		r.Stop()
	}
	return shouldRetry
}

// Stop cancels the next scheduled tick, if one is pending.
// A tick that has already fired is not affected.
func (r *Retry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Attempt runs one tick of the chain. See the package documentation for
// the exact sequence.
func (r *Retry) Attempt(action func()) {
	r.mu.Lock()
	r.ticks++
	if !r.proceed {
		r.mu.Unlock()
		return
	}
	if r.attempts >= r.maxAttempts {
		attempts := r.attempts
		onExhausted := r.onExhausted
		r.mu.Unlock()

		r.logger.Errorf("retry: max retry times reached [max:%d]", r.maxAttempts)
		if onExhausted != nil {
			onExhausted(attempts)
		}
		return
	}
	r.mu.Unlock()

	action()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++

	delay := r.policy.NextBackOff()
	if delay == backoff.Stop {
		delay = r.delay
	}

	var timer clockwork.Timer
	timer = r.clock.AfterFunc(delay, func() {
		r.mu.Lock()
		if r.timer == timer {
			r.timer = nil
		}
		r.mu.Unlock()

		r.Attempt(action)
	})
	r.timer = timer
}

// Attempts returns how many times the action has run.
func (r *Retry) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Ticks returns how many times Attempt has been entered, including
// ticks that returned without running the action.
func (r *Retry) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Enabled reports the continuation flag.
func (r *Retry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proceed
}

// Pending reports whether a next tick is scheduled.
func (r *Retry) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// MaxAttempts returns the attempt budget.
func (r *Retry) MaxAttempts() int {
	return r.maxAttempts
}
