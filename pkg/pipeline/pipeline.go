// Package pipeline implements the send path: validate, broadcast an
// optimistic copy to both participants, persist asynchronously, then
// broadcast a confirmation or an error. The optimistic push always
// completes before persistence is even attempted, so perceived latency
// does not depend on store I/O.
package pipeline

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"courier/pkg/logger"
	"courier/pkg/models"
	"courier/pkg/telemetry"
	"courier/pkg/thread"
	"courier/pkg/utils"
	"courier/pkg/validation"
)

// ErrUnknownRecipient is returned when the recipient is not present in the
// user directory.
var ErrUnknownRecipient = errors.New("unknown recipient")

// Store persists authoritative message records.
type Store interface {
	SaveMessage(m models.Message) error
}

// StoreFunc adapts a save function to the Store interface.
type StoreFunc func(m models.Message) error

func (f StoreFunc) SaveMessage(m models.Message) error { return f(m) }

// Pusher delivers an event to every session bound to a user channel.
type Pusher interface {
	Push(userID string, ev models.Event)
}

// Directory is the external user-directory collaborator consulted for
// recipient existence. The surrounding system owns user records; the
// pipeline only asks whether an identity is deliverable.
type Directory interface {
	Exists(userID string) bool
}

// Config carries pipeline tunables from the config file.
type Config struct {
	Workers              int
	QueueCapacity        int
	MaxPooledBufferBytes int
}

// Pipeline runs the four-state send machine:
// received -> broadcast_optimistic -> persisted | persist_failed ->
// broadcast_confirmed | broadcast_error.
type Pipeline struct {
	store  Store
	pusher Pusher
	dir    Directory

	q       *queue
	workers int
	wg      sync.WaitGroup
}

// New builds an unstarted pipeline.
func New(cfg Config, store Store, pusher Pusher, dir Directory) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		store:   store,
		pusher:  pusher,
		dir:     dir,
		q:       newQueue(cfg.QueueCapacity, cfg.MaxPooledBufferBytes),
		workers: workers,
	}
}

// Start launches the persist workers.
func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
}

// Stop closes the queue and waits for queued writes to drain. In-flight
// sends are never cancelled: once validation passed, the machine runs to
// confirmation or error.
func (p *Pipeline) Stop() {
	p.q.close()
	p.wg.Wait()
}

// QueueDepth reports the persist backlog, for metrics and tests.
func (p *Pipeline) QueueDepth() int { return p.q.len() }

// Send drives one send intent through the machine. A non-nil error is a
// synchronous validation failure belonging only to the initiating
// connection; it is never broadcast. After the optimistic broadcast the
// outcome is reported asynchronously via message_confirmed or
// message_error pushes.
func (p *Pipeline) Send(req models.SendRequest) error {
	// state: received
	if err := validation.ValidateSend(&req); err != nil {
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if p.dir != nil && !p.dir.Exists(req.Recipient) {
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return ErrUnknownRecipient
	}
	tid, err := thread.Key(req.Sender, req.Recipient)
	if err != nil {
		// unreachable after validation, but never derive a degenerate key
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	telemetry.SendsTotal.WithLabelValues("accepted").Inc()

	tempID := req.TempID
	if tempID == "" {
		tempID = utils.GenTempID()
	}
	m := models.Message{
		ID:          utils.GenID(),
		Thread:      tid,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Body:        req.Body,
		Attachments: req.Attachments,
		TS:          time.Now().UTC().UnixNano(),
	}

	// state: broadcast_optimistic. The provisional copy carries no
	// authoritative id yet; both channels see it before any store I/O.
	prov := models.WireMessage{Message: m, TempID: tempID, Status: models.StatusSending}
	prov.ID = ""
	if ev, err := models.NewEvent(models.EventReceiveMessage, prov); err == nil {
		p.pusher.Push(m.Sender, ev)
		p.pusher.Push(m.Recipient, ev)
	}

	// state: persisted (async)
	payload, err := json.Marshal(m)
	if err != nil {
		p.pushError(tempID, m.Sender, m.Recipient, "internal error")
		return nil
	}
	op := &persistOp{TempID: tempID, Sender: m.Sender, Recipient: m.Recipient, Payload: payload}
	if err := p.q.tryEnqueue(op); err != nil {
		// a full queue is a persistence failure: the recipient's
		// provisional copy stays as-is, the sender learns the truth
		logger.Warn("persist_queue_full", "thread", tid, "tempId", tempID)
		p.pushError(tempID, m.Sender, m.Recipient, "message could not be persisted")
		return nil
	}
	telemetry.QueueDepth.Set(float64(p.q.len()))
	return nil
}

// SendDirect is the request/response fallback for clients without a live
// connection: it validates and persists synchronously, skipping the
// optimistic phase, and pushes the already-confirmed message to both
// channels for any sessions that are online.
func (p *Pipeline) SendDirect(req models.SendRequest) (models.Message, error) {
	var m models.Message
	if err := validation.ValidateSend(&req); err != nil {
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return m, err
	}
	if p.dir != nil && !p.dir.Exists(req.Recipient) {
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return m, ErrUnknownRecipient
	}
	tid, err := thread.Key(req.Sender, req.Recipient)
	if err != nil {
		telemetry.SendsTotal.WithLabelValues("rejected").Inc()
		return m, err
	}
	telemetry.SendsTotal.WithLabelValues("accepted").Inc()

	m = models.Message{
		ID:          utils.GenID(),
		Thread:      tid,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Body:        req.Body,
		Attachments: req.Attachments,
		TS:          time.Now().UTC().UnixNano(),
	}
	if err := p.store.SaveMessage(m); err != nil {
		telemetry.PersistFailures.Inc()
		return models.Message{}, err
	}
	telemetry.PersistsTotal.Inc()

	wire := models.WireMessage{Message: m, Status: models.StatusSent}
	if ev, err := models.NewEvent(models.EventReceiveMessage, wire); err == nil {
		p.pusher.Push(m.Sender, ev)
		p.pusher.Push(m.Recipient, ev)
	}
	return m, nil
}

func (p *Pipeline) runWorker() {
	defer p.wg.Done()
	for it := range p.q.out() {
		p.process(it)
		telemetry.QueueDepth.Set(float64(p.q.len()))
	}
}

func (p *Pipeline) process(it *item) {
	defer it.done(p.q.maxPooled)
	op := it.op

	var m models.Message
	if err := json.Unmarshal(op.Payload, &m); err != nil {
		logger.Error("persist_op_corrupt", "tempId", op.TempID, "err", err)
		p.pushError(op.TempID, op.Sender, op.Recipient, "internal error")
		return
	}
	if err := p.store.SaveMessage(m); err != nil {
		// state: persist_failed -> broadcast_error. Sender only: the
		// recipient's provisional copy is a documented, accepted
		// inconsistency window and is never retracted.
		telemetry.PersistFailures.Inc()
		logger.Error("persist_failed", "thread", m.Thread, "tempId", op.TempID, "err", err)
		p.pushError(op.TempID, m.Sender, m.Recipient, err.Error())
		return
	}
	telemetry.PersistsTotal.Inc()

	// state: broadcast_confirmed, to both channels. Redelivery across
	// multiple bindings is safe: clients merge by tempId/id, not by
	// delivery count.
	conf := models.Confirmation{
		TempID:      op.TempID,
		WireMessage: models.WireMessage{Message: m, TempID: op.TempID, Status: models.StatusSent},
	}
	if ev, err := models.NewEvent(models.EventMessageConfirmed, conf); err == nil {
		p.pusher.Push(m.Sender, ev)
		p.pusher.Push(m.Recipient, ev)
	}
	logger.Debug("message_confirmed", "thread", m.Thread, "id", m.ID, "tempId", op.TempID)
}

func (p *Pipeline) pushError(tempID, sender, recipient, reason string) {
	ev, err := models.NewEvent(models.EventMessageError, models.SendError{
		TempID:    tempID,
		Error:     reason,
		Sender:    sender,
		Recipient: recipient,
	})
	if err != nil {
		return
	}
	p.pusher.Push(sender, ev)
}

// AllowAll is a Directory that accepts every identity, for deployments
// where the surrounding REST layer has already validated the recipient.
type AllowAll struct{}

func (AllowAll) Exists(string) bool { return true }

// StaticDirectory is a fixed identity set, used in tests and small
// deployments.
type StaticDirectory map[string]struct{}

func (d StaticDirectory) Exists(u string) bool {
	_, ok := d[u]
	return ok
}
