package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"courier/pkg/auth"
	"courier/pkg/logger"
	"courier/pkg/models"
	"courier/pkg/router"
	"courier/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// origin policy is enforced by the gateway middleware; the API key and
	// signed identity have both been checked before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerLiveChannel(r *mux.Router, d Deps) {
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		serveLiveChannel(w, req, d)
	}).Methods(http.MethodGet)
}

// serveLiveChannel upgrades the connection and runs its read loop. The
// first frame must be a join naming the authenticated identity; everything
// before a successful join is rejected.
func serveLiveChannel(w http.ResponseWriter, req *http.Request, d Deps) {
	user, status, msg := auth.ResolveUserFromRequest(req)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "user", user, "err", err)
		return
	}
	if d.MaxMessageBytes > 0 {
		conn.SetReadLimit(d.MaxMessageBytes)
	}

	s := router.NewSession(user, conn, d.Session)
	go s.WritePump()

	if !awaitJoin(s, user) {
		s.Close()
		return
	}
	d.Hub.Bind(s)
	logger.Info("channel_joined", "user", user)

	defer func() {
		d.Hub.Unbind(s)
		logger.Info("channel_left", "user", user)
	}()
	readLoop(s, user, d)
}

// awaitJoin reads frames until a valid join arrives. A join for a
// different identity than the authenticated one closes the connection.
func awaitJoin(s *router.Session, user string) bool {
	for {
		data, err := s.ReadMessage()
		if err != nil {
			return false
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type != models.EventJoin {
			sendError(s, "", "expected join frame")
			continue
		}
		var join models.Join
		if err := json.Unmarshal(ev.Data, &join); err != nil || join.UserID == "" {
			sendError(s, "", "invalid join payload")
			continue
		}
		if join.UserID != user {
			logger.Warn("join_identity_mismatch", "authenticated", user, "requested", join.UserID)
			sendError(s, "", "join user does not match authenticated identity")
			return false
		}
		return true
	}
}

func readLoop(s *router.Session, user string, d Deps) {
	for {
		data, err := s.ReadMessage()
		if err != nil {
			logger.Debug("channel_read_closed", "user", user, "err", err)
			return
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			sendError(s, "", "invalid frame")
			continue
		}
		dispatch(s, user, ev, d)
	}
}

// dispatch routes one inbound frame. Failures are reported only on this
// session; nothing invalid ever reaches the hub.
func dispatch(s *router.Session, user string, ev models.Event, d Deps) {
	switch ev.Type {
	case models.EventSendMessage:
		var req models.SendRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			sendError(s, "", "invalid send payload")
			return
		}
		// the authenticated identity is the sender, whatever the frame says
		req.Sender = user
		if err := d.Pipeline.Send(req); err != nil {
			sendError(s, req.TempID, err.Error())
		}
	case models.EventMarkAsRead:
		var req models.ReadRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			sendError(s, "", "invalid read payload")
			return
		}
		if err := d.Receipts.MarkRead(req.Thread, user); err != nil {
			logger.Debug("mark_read_rejected", "thread", req.Thread, "user", user, "err", err)
		}
	case models.EventTypingStart, models.EventTypingStop:
		var sig models.TypingSignal
		if err := json.Unmarshal(ev.Data, &sig); err != nil {
			return
		}
		sig.UserID = user
		if err := d.Relay.Forward(ev.Type, sig); err != nil {
			logger.Debug("typing_signal_dropped", "thread", sig.Thread, "user", user, "err", err)
		}
	case models.EventJoin:
		// already joined; harmless on reconnect-happy clients
	default:
		logger.Debug("unknown_frame_type", "type", ev.Type, "user", user)
	}
}

// sendError queues a message_error frame directly on the initiating
// session, bypassing the hub so other bindings of the same user never see
// their sibling's validation failures.
func sendError(s *router.Session, tempID, reason string) {
	ev, err := models.NewEvent(models.EventMessageError, models.SendError{TempID: tempID, Error: reason})
	if err != nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.Send(data)
}
