// Package client implements the reference timeline reconciliation a
// consumer of the live channel runs. The server may redeliver optimistic
// and confirmed copies across reconnects and multiple bindings; the merge
// rules here make the timeline converge regardless of delivery count or
// interleaving.
package client

import (
	"encoding/json"
	"sync"

	"courier/pkg/models"
)

// Timeline is one thread's ordered message list on a client. Safe for
// concurrent use.
type Timeline struct {
	mu      sync.Mutex
	entries []models.WireMessage
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// AppendLocal records the sender's own provisional copy before (or while)
// the server echo arrives.
func (t *Timeline) AppendLocal(m models.WireMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m.Status = models.StatusSending
	if i, ok := t.indexOf(m); ok {
		t.entries[i] = m
		return
	}
	t.entries = append(t.entries, m)
}

// Apply merges one channel event into the timeline:
//   - a frame matching an existing entry by tempId replaces it in place,
//     keeping the entry's position;
//   - a frame whose authoritative id is already present is discarded;
//   - anything else appends.
//
// message_error flips the matching entry to failed. Applying the same
// frame twice leaves the timeline unchanged.
func (t *Timeline) Apply(ev models.Event) error {
	switch ev.Type {
	case models.EventReceiveMessage:
		var m models.WireMessage
		if err := json.Unmarshal(ev.Data, &m); err != nil {
			return err
		}
		t.merge(m)
	case models.EventMessageConfirmed:
		var c models.Confirmation
		if err := json.Unmarshal(ev.Data, &c); err != nil {
			return err
		}
		wire := c.WireMessage
		wire.TempID = c.TempID
		wire.Status = models.StatusSent
		t.merge(wire)
	case models.EventMessageError:
		var se models.SendError
		if err := json.Unmarshal(ev.Data, &se); err != nil {
			return err
		}
		t.markFailed(se.TempID)
	}
	return nil
}

func (t *Timeline) merge(m models.WireMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.indexOf(m); ok {
		// never downgrade a confirmed entry back to sending on redelivery
		if t.entries[i].Status == models.StatusSent && m.Status == models.StatusSending {
			return
		}
		m.TempID = firstNonEmpty(m.TempID, t.entries[i].TempID)
		t.entries[i] = m
		return
	}
	t.entries = append(t.entries, m)
}

// indexOf matches by tempId first, then by authoritative id. Caller holds
// the lock.
func (t *Timeline) indexOf(m models.WireMessage) (int, bool) {
	if m.TempID != "" {
		for i, e := range t.entries {
			if e.TempID == m.TempID {
				return i, true
			}
		}
	}
	if m.ID != "" {
		for i, e := range t.entries {
			if e.ID == m.ID {
				return i, true
			}
		}
	}
	return 0, false
}

func (t *Timeline) markFailed(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.TempID == tempID {
			t.entries[i].Status = models.StatusFailed
			return
		}
	}
}

// Messages returns a copy of the current timeline in order.
func (t *Timeline) Messages() []models.WireMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.WireMessage, len(t.entries))
	copy(out, t.entries)
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
