package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"courier/pkg/auth"
	"courier/pkg/logger"
	"courier/pkg/query"
	"courier/pkg/receipts"
	"courier/pkg/store"
	"courier/pkg/thread"
	"courier/pkg/utils"
)

var (
	inbox       *query.Inbox
	readService *receipts.Service
)

// RegisterThreads registers the inbox and thread-scoped endpoints.
func RegisterThreads(r *mux.Router, q *query.Inbox, rcpts *receipts.Service) {
	inbox = q
	readService = rcpts

	r.HandleFunc("/threads", listThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", listThreadMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/read", markThreadRead).Methods(http.MethodPost)
}

// listThreads returns the caller's inbox: one summary per thread, newest
// activity first. The view is recomputed from stored rows on every call.
func listThreads(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	summaries, err := inbox.Threads(user)
	if err != nil {
		logger.Error("inbox_query_failed", "user", user, "err", err)
		utils.JSONError(w, http.StatusInternalServerError, "failed to load inbox")
		return
	}
	logger.Debug("inbox_listed", "user", user, "threads", len(summaries))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"threads": summaries})
}

// listThreadMessages returns the full message history of one thread. Only
// the two participants may read it. Fetching the history also marks the
// thread read for the caller; the receipt push rides on that side effect.
func listThreadMessages(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	id := mux.Vars(r)["id"]
	if !thread.IsParticipant(id, user) {
		logger.Warn("thread_access_denied", "thread", id, "user", user)
		utils.JSONError(w, http.StatusForbidden, "not a thread participant")
		return
	}
	msgs, err := store.ListMessages(id)
	if err != nil {
		logger.Error("thread_list_failed", "thread", id, "err", err)
		utils.JSONError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	// best-effort: a failed receipt never fails the read
	if err := readService.MarkRead(id, user); err != nil {
		logger.Warn("mark_read_on_open_failed", "thread", id, "user", user, "err", err)
	}

	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"thread_id": id,
		"messages":  msgs,
	})
}

// markThreadRead is the explicit read intent for clients that keep history
// locally and only want the receipt side effect.
func markThreadRead(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	id := mux.Vars(r)["id"]
	if err := readService.MarkRead(id, user); err != nil {
		if err == receipts.ErrNotParticipant {
			utils.JSONError(w, http.StatusForbidden, "not a thread participant")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to mark thread read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
