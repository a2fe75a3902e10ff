package socket

import (
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures ping/pong liveness checks on an open
// connection. A link that stops answering pings is closed, which turns a
// silent partition into a close notification.
type KeepAliveConfig struct {
	// Disabled turns keep-alive off.
	Disabled bool `yaml:"disabled"`

	// PingInterval is the time between pings (default: 30s).
	PingInterval time.Duration `yaml:"ping_interval"`

	// PongTimeout is how long a ping may stay unanswered (default: 5s).
	PongTimeout time.Duration `yaml:"pong_timeout"`

	// MaxMissedPongs is the number of unanswered pings that closes the
	// connection (default: 3).
	MaxMissedPongs int `yaml:"max_missed_pongs"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c KeepAliveConfig) WithDefaults() KeepAliveConfig {
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs == 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// DetectionDelay is the longest time a dead link can go unnoticed:
// PingInterval * MaxMissedPongs + PongTimeout.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// keepAlive sends a ping every interval and calls onTimeout once
// MaxMissedPongs pings in a row went unanswered.
type keepAlive struct {
	config    KeepAliveConfig
	sendPing  func() error
	onTimeout func(missed int)

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	pending  bool
	lastPing time.Time
	missed   int
	pings    int
	pongs    int
}

func newKeepAlive(config KeepAliveConfig, sendPing func() error, onTimeout func(missed int)) *keepAlive {
	return &keepAlive{
		config:    config.WithDefaults(),
		sendPing:  sendPing,
		onTimeout: onTimeout,
	}
}

func (ka *keepAlive) start() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.running {
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	go ka.loop(ka.stopCh)
}

func (ka *keepAlive) stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// pongReceived clears the outstanding ping and the missed count.
func (ka *keepAlive) pongReceived() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.pongs++
	ka.pending = false
	ka.missed = 0
}

// stats returns pings sent, pongs received and the current missed count.
func (ka *keepAlive) stats() (pings, pongs, missed int) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.pings, ka.pongs, ka.missed
}

func (ka *keepAlive) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if missed, dead := ka.check(); dead {
				ka.stop()
				ka.onTimeout(missed)
				return
			}
			ka.ping()
		}
	}
}

// check counts an unanswered ping older than PongTimeout as missed.
func (ka *keepAlive) check() (int, bool) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.pending && time.Since(ka.lastPing) >= ka.config.PongTimeout {
		ka.missed++
		ka.pending = false
	}
	return ka.missed, ka.missed >= ka.config.MaxMissedPongs
}

func (ka *keepAlive) ping() {
	ka.mu.Lock()
	ka.pings++
	ka.pending = true
	ka.lastPing = time.Now()
	ka.mu.Unlock()

	// A failed write leaves the ping pending, so it counts as missed.
	_ = ka.sendPing()
}
