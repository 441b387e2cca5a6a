// Package relay forwards ephemeral typing signals between participants.
// Signals carry no persistence, no acknowledgement, and no state: a signal
// to an offline recipient simply evaporates.
package relay

import (
	"errors"

	"courier/pkg/models"
	"courier/pkg/telemetry"
	"courier/pkg/thread"
)

var ErrNotParticipant = errors.New("user is not a thread participant")

// Pusher delivers an event to every session bound to a user channel.
type Pusher interface {
	Push(userID string, ev models.Event)
}

// Relay is stateless; one instance serves all threads.
type Relay struct {
	pusher Pusher
}

func New(pusher Pusher) *Relay {
	return &Relay{pusher: pusher}
}

// Forward pushes a typing_start or typing_stop signal to the other
// participant of sig.Thread. The sender never receives their own signal.
func (r *Relay) Forward(eventType string, sig models.TypingSignal) error {
	if eventType != models.EventTypingStart && eventType != models.EventTypingStop {
		return errors.New("not a typing event: " + eventType)
	}
	if !thread.IsParticipant(sig.Thread, sig.UserID) {
		return ErrNotParticipant
	}
	recipient := sig.Recipient
	if recipient == "" {
		other, ok := thread.Other(sig.Thread, sig.UserID)
		if !ok {
			return ErrNotParticipant
		}
		recipient = other
	}
	ev, err := models.NewEvent(eventType, sig)
	if err != nil {
		return err
	}
	r.pusher.Push(recipient, ev)
	telemetry.PushesTotal.WithLabelValues(eventType).Inc()
	return nil
}
