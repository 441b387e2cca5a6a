// Package api assembles the HTTP surface: the /v1 REST endpoints and the
// /v1/ws live channel. All /v1 routes sit behind the signed-identity
// middleware; API-key gating happens earlier, in the gateway middleware
// wrapped around the whole server.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"courier/pkg/api/handlers"
	"courier/pkg/auth"
	"courier/pkg/pipeline"
	"courier/pkg/query"
	"courier/pkg/receipts"
	"courier/pkg/relay"
	"courier/pkg/router"
)

// Deps carries the wired services the HTTP layer exposes.
type Deps struct {
	Hub      *router.Hub
	Pipeline *pipeline.Pipeline
	Receipts *receipts.Service
	Relay    *relay.Relay
	Inbox    *query.Inbox

	// Session tunables for upgraded connections.
	Session         router.SessionOptions
	MaxMessageBytes int64
}

// Handler returns the /v1 router.
func Handler(d Deps) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.RequireSignedUser)

	handlers.RegisterThreads(v1, d.Inbox, d.Receipts)
	handlers.RegisterMessages(v1, d.Pipeline)
	handlers.RegisterSigning(v1)
	registerLiveChannel(v1, d)

	return r
}
