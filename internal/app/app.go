// Package app wires the server components together and owns their
// lifecycle: config validation, store, hub, pipeline, receipts, relay,
// HTTP surface, and ordered shutdown.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"courier/pkg/config"
	"courier/pkg/models"
	"courier/pkg/pipeline"
	"courier/pkg/query"
	"courier/pkg/receipts"
	"courier/pkg/relay"
	"courier/pkg/router"
	"courier/pkg/store"
	"courier/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.Effective
	version   string
	commit    string
	buildDate string

	hub   *router.Hub
	pipe  *pipeline.Pipeline
	rcpts *receipts.Service
	rel   *relay.Relay
	inbox *query.Inbox

	srv *http.Server
}

// New initializes resources that do not require a running context: config
// validation, runtime keys, validation rules, the store, and the service
// graph. Call Run to start the hub, workers and HTTP server.
func New(eff config.Effective, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys: backend API keys double as identity signing secrets
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	validation.SetRules(validation.Rules{
		MaxBodyRunes:   eff.Config.Limits.MaxBodyRunes,
		MaxAttachments: eff.Config.Limits.MaxAttachments,
		MaxIdentityLen: eff.Config.Limits.MaxIdentityLen,
	})

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate}
	a.buildServices()
	return a, nil
}

// buildServices constructs the hub and the services around it. The hub is
// the single push surface shared by the pipeline, receipts and relay.
func (a *App) buildServices() {
	a.hub = router.NewHub()
	a.pipe = pipeline.New(pipeline.Config{
		Workers:              a.eff.Config.Pipeline.Workers,
		QueueCapacity:        a.eff.Config.Pipeline.Queue.Capacity,
		MaxPooledBufferBytes: int(a.eff.Config.Pipeline.Queue.MaxPooledBufferBytes.Int64()),
	}, pipeline.StoreFunc(store.SaveMessage), a.hub, pipeline.AllowAll{})
	a.rcpts = receipts.New(receipts.MarkerFunc(store.MarkThreadRead), a.hub)
	a.rel = relay.New(a.hub)
	a.inbox = query.NewInbox(storeReader{})
}

// storeReader adapts the package-level store functions to the query
// package's Reader interface.
type storeReader struct{}

func (storeReader) ListUserThreads(userID string) ([]string, error) {
	return store.ListUserThreads(userID)
}

func (storeReader) ListMessages(threadID string) ([]models.Message, error) {
	return store.ListMessages(threadID)
}

// Run starts the hub, the persist workers and the HTTP server, and blocks
// until ctx is canceled or a fatal server error occurs. Shutdown order:
// stop intake (HTTP), drain the persist queue, stop the hub, close the
// store.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()
	a.pipe.Start()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpDrainTimeout)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	a.pipe.Stop()
	a.hub.Stop()
	_ = store.Close()
}
