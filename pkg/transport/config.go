package transport

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redial-io/redial-go/pkg/retry"
	"github.com/redial-io/redial-go/pkg/socket"
)

// Configuration defaults.
const (
	DefaultFirstConnectTimeout = 10 * time.Second
	DefaultHandshakeTimeout    = 10 * time.Second
)

// Config configures a Transport.
type Config struct {
	// Endpoint is the connection target (required).
	Endpoint string `yaml:"endpoint"`

	// PayloadMode is the framing hint passed to the socket (required).
	PayloadMode socket.Mode `yaml:"payload_mode"`

	// FirstConnectTimeout bounds each connection attempt (default: 10s).
	FirstConnectTimeout time.Duration `yaml:"first_connect_timeout"`

	// Retry configures reconnect episodes.
	Retry RetryConfig `yaml:"retry"`

	// HandshakeTimeout bounds the WebSocket handshake (default: 10s).
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// Headers are sent with every handshake.
	Headers map[string]string `yaml:"headers"`

	// InsecureSkipVerify disables server certificate verification for wss.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// KeepAlive configures ping/pong liveness checks on open connections.
	KeepAlive socket.KeepAliveConfig `yaml:"keepalive"`

	// TraceFile enables a CBOR trace of the lifecycle when set.
	TraceFile string `yaml:"trace_file"`
}

// RetryConfig configures reconnect episodes.
type RetryConfig struct {
	// MaxAttempts is the attempt budget per episode (default: 3).
	MaxAttempts int `yaml:"max_attempts"`

	// Delay is the gap between attempts (default: 5s).
	Delay time.Duration `yaml:"delay"`
}

// ParseConfig parses YAML config data, applies defaults and validates.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
// Negative values are kept so that Validate can reject them.
func (c Config) WithDefaults() Config {
	if c.FirstConnectTimeout == 0 {
		c.FirstConnectTimeout = DefaultFirstConnectTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = retry.DefaultDelay
	}
	if !c.KeepAlive.Disabled {
		c.KeepAlive = c.KeepAlive.WithDefaults()
	}
	return c
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if c.PayloadMode != socket.ModeBinary && c.PayloadMode != socket.ModeText {
		return fmt.Errorf("%w: payload_mode is required (binary or text)", ErrInvalidConfig)
	}
	if c.FirstConnectTimeout < 0 || c.HandshakeTimeout < 0 || c.Retry.Delay < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("%w: retry.max_attempts must not be negative", ErrInvalidConfig)
	}
	if ka := c.KeepAlive; !ka.Disabled {
		if ka.PingInterval < 0 || ka.PongTimeout < 0 || ka.MaxMissedPongs < 0 {
			return fmt.Errorf("%w: keepalive values must not be negative", ErrInvalidConfig)
		}
		if ka.PongTimeout > ka.PingInterval {
			return fmt.Errorf("%w: keepalive.pong_timeout must not exceed keepalive.ping_interval", ErrInvalidConfig)
		}
	}
	return nil
}

// Header returns the handshake headers as an http.Header.
func (c Config) Header() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}
