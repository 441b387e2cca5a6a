// Package router maps user identities to live sessions so that "push to
// user X" is well-defined no matter how many tabs or devices X has open.
// The hub is an injected service with explicit lifecycle, created at
// process start and handed to the pipeline, receipts and relay layers.
package router

import (
	"encoding/json"

	"courier/pkg/logger"
	"courier/pkg/models"
	"courier/pkg/telemetry"
)

type pushReq struct {
	userID string
	event  string
	data   []byte
}

// Hub owns the binding table userID -> set of sessions. All mutation and
// fan-out happens on the Run loop goroutine, so pushes issued in sequence
// are delivered to each session's send queue in that sequence.
type Hub struct {
	register   chan *Session
	unregister chan *Session
	pushes     chan pushReq
	done       chan struct{}

	sessions map[string]map[*Session]bool
}

// NewHub creates an unstarted hub; callers run Run in a goroutine.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Session),
		unregister: make(chan *Session),
		pushes:     make(chan pushReq, 256),
		done:       make(chan struct{}),
		sessions:   make(map[string]map[*Session]bool),
	}
}

// Bind registers a session under its user id. Binding the same user again
// from another connection is not an error; every bound session receives
// subsequent pushes.
func (h *Hub) Bind(s *Session) {
	h.register <- s
}

// Unbind removes a session and closes its send queue.
func (h *Hub) Unbind(s *Session) {
	h.unregister <- s
}

// Push fans the event out to every session bound to userID. A user with
// no live binding is a no-op, not an error: the durable store remains the
// recovery path. Ordering is guaranteed only per session queue.
func (h *Hub) Push(userID string, ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("push_marshal_failed", "user", userID, "event", ev.Type, "err", err)
		return
	}
	select {
	case h.pushes <- pushReq{userID: userID, event: ev.Type, data: data}:
	case <-h.done:
	}
}

// Run processes bind/unbind/push requests until Stop is called. It is the
// only goroutine that touches the binding table.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			set := h.sessions[s.UserID]
			if set == nil {
				set = make(map[*Session]bool)
				h.sessions[s.UserID] = set
			}
			if !set[s] {
				set[s] = true
				telemetry.SessionsBound.Inc()
			}
			logger.Info("session_bound", "user", s.UserID, "bindings", len(set))
		case s := <-h.unregister:
			if set, ok := h.sessions[s.UserID]; ok && set[s] {
				delete(set, s)
				close(s.send)
				if len(set) == 0 {
					delete(h.sessions, s.UserID)
				}
				telemetry.SessionsBound.Dec()
				logger.Info("session_unbound", "user", s.UserID, "bindings", len(set))
			}
		case req := <-h.pushes:
			set := h.sessions[req.userID]
			if len(set) == 0 {
				telemetry.PushNoops.Inc()
				continue
			}
			telemetry.PushesTotal.WithLabelValues(req.event).Inc()
			for s := range set {
				select {
				case s.send <- req.data:
				default:
					// slow consumer: drop the session rather than
					// block pushes to everyone else
					delete(set, s)
					close(s.send)
					telemetry.SessionsBound.Dec()
					logger.Warn("session_dropped_slow", "user", req.userID)
				}
			}
			if len(set) == 0 {
				delete(h.sessions, req.userID)
			}
		case <-h.done:
			return
		}
	}
}

// Stop terminates the Run loop. Sessions are torn down by their own
// connection close paths.
func (h *Hub) Stop() {
	close(h.done)
}
