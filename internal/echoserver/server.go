// Package echoserver provides a WebSocket echo endpoint used by tests and
// by the redial-echo command.
//
// Every frame received is written back with the same frame type. The
// server can drop connections abruptly, either on demand or after every
// n-th echoed frame, to exercise client reconnect behavior.
package echoserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger.Sugar()
	}
}

// WithDropEvery drops a connection after every n-th frame it echoes.
// Zero disables dropping.
func WithDropEvery(n int) Option {
	return func(s *Server) {
		s.dropEvery = n
	}
}

// WithRejectAll makes the server refuse every upgrade with 503.
func WithRejectAll(reject bool) Option {
	return func(s *Server) {
		s.rejecting = reject
	}
}

// WithIgnorePings makes the server swallow pings without answering,
// like a peer behind a silent partition.
func WithIgnorePings(ignore bool) Option {
	return func(s *Server) {
		s.ignorePings = ignore
	}
}

// Server is an http.Handler that upgrades requests and echoes frames.
type Server struct {
	upgrader  websocket.Upgrader
	logger    *zap.SugaredLogger
	dropEvery int

	mu        sync.Mutex
	conns     map[*websocket.Conn]struct{}
	accepted  int
	rejected  int
	rejecting bool
	echoed    int

	ignorePings bool
	pings       int
}

// New creates an echo server.
func New(opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: zap.NewNop().Sugar(),
		conns:  make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.rejecting {
		s.rejected++
		s.mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.accepted++
	s.mu.Unlock()

	s.logger.Debugw("connection accepted", "remote", r.RemoteAddr)
	conn.SetPingHandler(func(data string) error {
		s.mu.Lock()
		s.pings++
		ignore := s.ignorePings
		s.mu.Unlock()
		if ignore {
			return nil
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	s.serve(conn)
}

func (s *Server) serve(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	frames := 0
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("read ended", "error", err)
			}
			return
		}

		if err := conn.WriteMessage(typ, data); err != nil {
			s.logger.Debugw("write failed", "error", err)
			return
		}
		frames++

		s.mu.Lock()
		s.echoed++
		s.mu.Unlock()

		if s.dropEvery > 0 && frames%s.dropEvery == 0 {
			s.logger.Infow("dropping connection", "frames", frames)
			return
		}
	}
}

// DropAll closes every live connection without a close handshake and
// returns how many were dropped.
func (s *Server) DropAll() int {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.NetConn().Close()
	}
	return len(conns)
}

// CloseAll sends a close frame with code and reason to every live
// connection.
func (s *Server) CloseAll(code int, reason string) int {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	return len(conns)
}

// SetRejecting toggles refusing new upgrades.
func (s *Server) SetRejecting(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejecting = reject
}

// SetIgnorePings toggles answering pings on all connections.
func (s *Server) SetIgnorePings(ignore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignorePings = ignore
}

// Pings returns the number of pings received across all connections.
func (s *Server) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Connections returns the number of live connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Accepted returns the number of upgrades accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Rejected returns the number of upgrades refused so far.
func (s *Server) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

// Echoed returns the number of frames echoed across all connections.
func (s *Server) Echoed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.echoed
}
