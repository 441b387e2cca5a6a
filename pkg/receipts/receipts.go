// Package receipts handles mark_as_read intents: flip unread rows in the
// store and notify the affected senders. Receipts are best-effort; a miss
// is repaired the next time the recipient opens the thread.
package receipts

import (
	"errors"

	"courier/pkg/logger"
	"courier/pkg/models"
	"courier/pkg/telemetry"
	"courier/pkg/thread"
)

// ErrNotParticipant is returned when the reader is not one of the two
// identities encoded in the thread key.
var ErrNotParticipant = errors.New("reader is not a thread participant")

// Marker flips unread messages addressed to reader in a thread and reports
// the distinct senders whose messages changed state.
type Marker interface {
	MarkThreadRead(threadID, reader string) (senders []string, flipped int, err error)
}

// MarkerFunc adapts a function to the Marker interface.
type MarkerFunc func(threadID, reader string) ([]string, int, error)

func (f MarkerFunc) MarkThreadRead(threadID, reader string) ([]string, int, error) {
	return f(threadID, reader)
}

// Pusher delivers an event to every session bound to a user channel.
type Pusher interface {
	Push(userID string, ev models.Event)
}

// Service processes read intents.
type Service struct {
	marker Marker
	pusher Pusher
}

func New(marker Marker, pusher Pusher) *Service {
	return &Service{marker: marker, pusher: pusher}
}

// MarkRead marks every message in threadID addressed to reader as read,
// then pushes one messages_read receipt per distinct affected sender. When
// nothing flipped (already read, or no messages) no receipt goes out, so
// repeated intents for the same thread are silent after the first.
func (s *Service) MarkRead(threadID, reader string) error {
	if !thread.IsParticipant(threadID, reader) {
		return ErrNotParticipant
	}
	senders, flipped, err := s.marker.MarkThreadRead(threadID, reader)
	if err != nil {
		logger.Error("mark_read_failed", "thread", threadID, "reader", reader, "err", err)
		return err
	}
	if flipped == 0 {
		return nil
	}
	telemetry.ReadsMarked.Add(float64(flipped))

	receipt := models.ReadReceipt{Thread: threadID, Reader: reader}
	ev, err := models.NewEvent(models.EventMessagesRead, receipt)
	if err != nil {
		return err
	}
	for _, sender := range senders {
		s.pusher.Push(sender, ev)
	}
	logger.Debug("messages_read", "thread", threadID, "reader", reader, "flipped", flipped)
	return nil
}
