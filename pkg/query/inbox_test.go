package query

import (
	"testing"

	"courier/pkg/models"
)

type memReader struct {
	threads  map[string][]string
	messages map[string][]models.Message
}

func (r *memReader) ListUserThreads(userID string) ([]string, error) {
	return r.threads[userID], nil
}

func (r *memReader) ListMessages(threadID string) ([]models.Message, error) {
	return r.messages[threadID], nil
}

func TestThreadsSummaries(t *testing.T) {
	reader := &memReader{
		threads: map[string][]string{"5": {"thread_3_5", "thread_5_9"}},
		messages: map[string][]models.Message{
			"thread_3_5": {
				{ID: "m1", Thread: "thread_3_5", Sender: "3", Recipient: "5", Body: "first", TS: 100},
				{ID: "m2", Thread: "thread_3_5", Sender: "5", Recipient: "3", Body: "reply", TS: 200},
				{ID: "m3", Thread: "thread_3_5", Sender: "3", Recipient: "5", Body: "latest", TS: 300},
			},
			"thread_5_9": {
				{ID: "m4", Thread: "thread_5_9", Sender: "9", Recipient: "5", Body: "hello", TS: 500, Read: true},
			},
		},
	}
	got, err := NewInbox(reader).Threads("5")
	if err != nil {
		t.Fatalf("Threads failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d summaries, want 2", len(got))
	}
	// newest activity first
	if got[0].Thread != "thread_5_9" || got[1].Thread != "thread_3_5" {
		t.Fatalf("wrong order: %s, %s", got[0].Thread, got[1].Thread)
	}
	if got[0].Unread != 0 {
		t.Fatalf("read thread unread = %d, want 0", got[0].Unread)
	}
	if got[0].OtherUser != "9" {
		t.Fatalf("other = %q, want 9", got[0].OtherUser)
	}

	busy := got[1]
	if busy.LastBody != "latest" || busy.LastTS != 300 {
		t.Fatalf("last message = %q/%d, want latest/300", busy.LastBody, busy.LastTS)
	}
	// two unread from "3"; user 5's own message never counts
	if busy.Unread != 2 {
		t.Fatalf("unread = %d, want 2", busy.Unread)
	}
	if busy.OtherUser != "3" {
		t.Fatalf("other = %q, want 3", busy.OtherUser)
	}
}

func TestThreadsSingleMessageThread(t *testing.T) {
	reader := &memReader{
		threads: map[string][]string{"b": {"thread_a_b"}},
		messages: map[string][]models.Message{
			"thread_a_b": {{ID: "m1", Thread: "thread_a_b", Sender: "a", Recipient: "b", Body: "only", TS: 42}},
		},
	}
	got, err := NewInbox(reader).Threads("b")
	if err != nil {
		t.Fatalf("Threads failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	if got[0].LastBody != "only" || got[0].Unread != 1 || got[0].OtherUser != "a" {
		t.Fatalf("unexpected summary %+v", got[0])
	}
}

func TestThreadsEmptyInbox(t *testing.T) {
	got, err := NewInbox(&memReader{}).Threads("nobody")
	if err != nil {
		t.Fatalf("Threads failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty inbox, got %v", got)
	}
}
