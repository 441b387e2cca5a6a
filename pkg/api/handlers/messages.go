package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"courier/pkg/auth"
	"courier/pkg/logger"
	"courier/pkg/models"
	"courier/pkg/pipeline"
	"courier/pkg/store"
	"courier/pkg/thread"
	"courier/pkg/utils"
	"courier/pkg/validation"
)

var sendPipeline *pipeline.Pipeline

// RegisterMessages registers the request/response message endpoints. These
// are the fallback for callers without a live channel; the websocket path
// is the primary send surface.
func RegisterMessages(r *mux.Router, p *pipeline.Pipeline) {
	sendPipeline = p

	r.HandleFunc("/messages", createMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", getMessage).Methods(http.MethodGet)
}

// createMessage persists a message synchronously and pushes the confirmed
// copy to any live sessions of either participant.
func createMessage(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// the verified identity is the sender, whatever the body says
	if req.Sender != "" && req.Sender != user {
		utils.JSONError(w, http.StatusForbidden, "sender mismatch with authenticated user")
		return
	}
	req.Sender = user

	m, err := sendPipeline.SendDirect(req)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnknownRecipient):
			utils.JSONError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, validation.ErrEmptyBody),
			errors.Is(err, validation.ErrSelfSend),
			errors.Is(err, validation.ErrMissingUser):
			utils.JSONError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Error("direct_send_failed", "sender", user, "err", err)
			utils.JSONError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}
	logger.Info("message_created", "thread", m.Thread, "id", m.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// getMessage returns one message by authoritative id. Participants only.
func getMessage(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	id := mux.Vars(r)["id"]
	m, err := store.GetMessage(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if !thread.IsParticipant(m.Thread, user) {
		utils.JSONError(w, http.StatusForbidden, "not a thread participant")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}
