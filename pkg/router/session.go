package router

import (
	"time"

	"github.com/gorilla/websocket"

	"courier/pkg/logger"
)

// SessionOptions carries per-session tunables from config.
type SessionOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// Session is one live connection bound to a user channel. The hub owns the
// send queue; the session owns the websocket connection.
type Session struct {
	UserID string

	conn *websocket.Conn
	send chan []byte
	opts SessionOptions
}

// NewSession wraps an upgraded websocket connection for the given user.
func NewSession(userID string, conn *websocket.Conn, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	return &Session{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
		opts:   opts,
	}
}

// Send queues a frame directly on this session, bypassing the hub. Used
// for synchronous validation errors that must reach only the initiating
// connection. Returns false when the session queue is full or closed.
func (s *Session) Send(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// ReadMessage reads the next text frame from the connection.
func (s *Session) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// WritePump drains the send queue onto the websocket until the queue is
// closed or a write fails. Run in its own goroutine per session.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("session_write_failed", "user", s.UserID, "err", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the underlying connection; the read loop unblocks with an
// error and unbinds the session.
func (s *Session) Close() {
	_ = s.conn.Close()
}
