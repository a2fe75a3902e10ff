package socket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket dialer defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// Logger is the operational log sink used by the WebSocket dialer.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// WebSocketConfig configures a WebSocketDialer.
type WebSocketConfig struct {
	HandshakeTimeout   time.Duration
	WriteTimeout       time.Duration
	Header             http.Header
	InsecureSkipVerify bool
	KeepAlive          KeepAliveConfig
}

// WebSocketDialer dials WebSocket endpoints (ws:// and wss://).
type WebSocketDialer struct {
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
	keepAlive    KeepAliveConfig
	logger       Logger
}

// NewWebSocketDialer creates a dialer. A nil logger discards logs.
func NewWebSocketDialer(cfg WebSocketConfig, logger Logger) *WebSocketDialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for test endpoints
			},
		},
		header:       cfg.Header.Clone(),
		writeTimeout: cfg.WriteTimeout,
		keepAlive:    cfg.KeepAlive.WithDefaults(),
		logger:       logger,
	}
}

// Dial validates endpoint and starts connecting in the background.
func (d *WebSocketDialer) Dial(endpoint string, mode Mode, h Handler) (Socket, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q (use ws or wss)", ErrInvalidEndpoint, u.Scheme)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSocket{
		id:           uuid.NewString(),
		endpoint:     endpoint,
		mode:         mode,
		handler:      h,
		dialer:       d.dialer,
		header:       d.header,
		writeTimeout: d.writeTimeout,
		keepAlive:    d.keepAlive,
		logger:       d.logger,
		ctx:          ctx,
		cancel:       cancel,
	}
	go s.run()
	return s, nil
}

// wsSocket is one gorilla/websocket connection handle.
type wsSocket struct {
	id           string
	endpoint     string
	mode         Mode
	handler      Handler
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
	keepAlive    KeepAliveConfig
	logger       Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	conn     *websocket.Conn
	closing  bool
	timedOut bool
	ka       *keepAlive

	closeOnce sync.Once
}

func (s *wsSocket) ID() string { return s.id }

func (s *wsSocket) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrClosed
	}
	if s.conn == nil {
		return ErrNotOpen
	}

	mode := msg.Mode
	if mode == ModeUnset {
		mode = s.mode
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("socket: set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(frameType(mode), msg.Data); err != nil {
		return fmt.Errorf("socket: send: %w", err)
	}
	return nil
}

func (s *wsSocket) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	conn := s.conn
	s.mu.Unlock()

	// Aborts a dial that is still in progress.
	s.cancel()

	if conn == nil {
		return nil
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing connection")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(s.writeTimeout))
	return conn.Close()
}

func (s *wsSocket) run() {
	conn, resp, err := s.dialer.DialContext(s.ctx, s.endpoint, s.header)
	if err != nil {
		if resp != nil {
			s.logger.Warnf("socket: dial failed [id:%s endpoint:%s status:%d]: %v", s.id, s.endpoint, resp.StatusCode, err)
		} else {
			s.logger.Debugf("socket: dial failed [id:%s endpoint:%s]: %v", s.id, s.endpoint, err)
		}
		if !s.isClosing() {
			s.notifyError(fmt.Errorf("socket: dial %s: %w", s.endpoint, err))
			s.notifyClose(websocket.CloseAbnormalClosure, err.Error())
			return
		}
		s.notifyClose(websocket.CloseNormalClosure, "closed before open")
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		s.notifyClose(websocket.CloseNormalClosure, "closed before open")
		return
	}
	s.conn = conn
	if !s.keepAlive.Disabled {
		s.ka = s.startKeepAlive(conn)
	}
	s.mu.Unlock()

	s.logger.Debugf("socket: open [id:%s endpoint:%s]", s.id, s.endpoint)
	if s.handler.OnOpen != nil {
		s.handler.OnOpen()
	}

	s.readLoop(conn)
}

// startKeepAlive pings conn and closes it once too many pongs are
// missed. The read deadline is a backstop for links where even the close
// cannot be delivered. Callers hold s.mu.
func (s *wsSocket) startKeepAlive(conn *websocket.Conn) *keepAlive {
	readTimeout := s.keepAlive.DetectionDelay()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	ka := newKeepAlive(s.keepAlive,
		func() error {
			return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
		},
		func(missed int) {
			s.logger.Warnf("socket: keepalive timeout [id:%s endpoint:%s missed:%d]", s.id, s.endpoint, missed)
			s.mu.Lock()
			s.timedOut = true
			s.mu.Unlock()
			_ = conn.Close()
		},
	)
	conn.SetPongHandler(func(string) error {
		ka.pongReceived()
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	ka.start()
	return ka
}

func (s *wsSocket) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			s.stopKeepAlive()
			code, reason := s.closeDetails(err)
			if code != websocket.CloseNormalClosure && code != websocket.CloseGoingAway {
				if reason == ErrKeepAlive.Error() {
					err = ErrKeepAlive
				}
				s.notifyError(fmt.Errorf("socket: connection lost: %w", err))
			}
			s.notifyClose(code, reason)
			return
		}
		if s.ka != nil {
			_ = conn.SetReadDeadline(time.Now().Add(s.keepAlive.DetectionDelay()))
		}

		if s.handler.OnMessage != nil {
			s.handler.OnMessage(Message{Mode: modeOf(typ), Data: data})
		}
	}
}

func (s *wsSocket) closeDetails(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	if s.isTimedOut() {
		return websocket.CloseAbnormalClosure, ErrKeepAlive.Error()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() && !s.isClosing() {
		return websocket.CloseAbnormalClosure, ErrKeepAlive.Error()
	}
	if s.isClosing() {
		return websocket.CloseNormalClosure, "closed by client"
	}
	return websocket.CloseAbnormalClosure, err.Error()
}

func (s *wsSocket) isTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedOut
}

func (s *wsSocket) stopKeepAlive() {
	s.mu.Lock()
	ka := s.ka
	s.mu.Unlock()
	if ka != nil {
		ka.stop()
	}
}

func (s *wsSocket) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *wsSocket) notifyError(err error) {
	if s.handler.OnError != nil {
		s.handler.OnError(err)
	}
}

// notifyClose reports the final notification exactly once.
func (s *wsSocket) notifyClose(code int, reason string) {
	s.closeOnce.Do(func() {
		s.cancel()
		s.logger.Debugf("socket: closed [id:%s code:%d reason:%s]", s.id, code, reason)
		if s.handler.OnClose != nil {
			s.handler.OnClose(code, reason)
		}
	})
}

func frameType(m Mode) int {
	if m == ModeText {
		return websocket.TextMessage
	}
	return websocket.BinaryMessage
}

func modeOf(frameType int) Mode {
	if frameType == websocket.TextMessage {
		return ModeText
	}
	return ModeBinary
}

// Compile-time interface satisfaction checks.
var (
	_ Dialer = (*WebSocketDialer)(nil)
	_ Socket = (*wsSocket)(nil)
)
