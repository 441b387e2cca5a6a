package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"courier/pkg/logger"
	"courier/pkg/utils"
)

// RegisterSigning registers the identity-signing endpoint. Backend
// services call it to mint the X-User-Signature a browser client presents;
// the caller's own API key is the signing secret, so a signature is only
// valid against the key set that produced it.
func RegisterSigning(r *mux.Router) {
	r.HandleFunc("/_sign", signUser).Methods(http.MethodPost)
}

func signUser(w http.ResponseWriter, r *http.Request) {
	// only backend roles may mint signatures
	if role := r.Header.Get("X-Role-Name"); role != "backend" {
		logger.Warn("sign_forbidden", "role", role, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	auth := r.Header.Get("Authorization")
	var key string
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		key = strings.TrimSpace(auth[7:])
	}
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		utils.JSONError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	// the verification path rejects such ids anyway; refuse to mint for them
	if strings.Contains(payload.UserID, "_") {
		utils.JSONError(w, http.StatusBadRequest, `user id must not contain "_"`)
		return
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload.UserID))
	sig := hex.EncodeToString(mac.Sum(nil))
	logger.Info("user_signature_minted", "remote", r.RemoteAddr)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{
		"userId":    payload.UserID,
		"signature": sig,
	})
}
