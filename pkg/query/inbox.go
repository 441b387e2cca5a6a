// Package query builds read-side views over the message table. Views are
// recomputed from stored rows on every call; nothing here caches, so a
// summary can never drift from the table it summarizes.
package query

import (
	"sort"

	"courier/pkg/models"
	"courier/pkg/thread"
)

// Reader is the slice of the store the inbox view needs.
type Reader interface {
	ListUserThreads(userID string) ([]string, error)
	ListMessages(threadID string) ([]models.Message, error)
}

// Inbox computes per-user thread summaries.
type Inbox struct {
	reader Reader
}

func NewInbox(reader Reader) *Inbox {
	return &Inbox{reader: reader}
}

// Threads returns one summary per thread the user participates in, newest
// activity first. Unread counts only messages addressed to the user; the
// user's own unconfirmed sends never inflate their inbox.
func (q *Inbox) Threads(userID string) ([]models.ThreadSummary, error) {
	tids, err := q.reader.ListUserThreads(userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ThreadSummary, 0, len(tids))
	for _, tid := range tids {
		msgs, err := q.reader.ListMessages(tid)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		unread := 0
		for _, m := range msgs {
			if m.Recipient == userID && !m.Read {
				unread++
			}
		}
		other, _ := thread.Other(tid, userID)
		out = append(out, models.ThreadSummary{
			Thread:    tid,
			OtherUser: other,
			LastBody:  last.Body,
			LastTS:    last.TS,
			Unread:    unread,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastTS > out[j].LastTS })
	return out, nil
}
