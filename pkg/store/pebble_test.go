package store

import (
	"testing"

	"courier/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	if err := Open(dir); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(); err != nil {
			t.Fatalf("failed to close store: %v", err)
		}
	})
}

func msg(id, tid, sender, recipient, body string, ts int64) models.Message {
	return models.Message{ID: id, Thread: tid, Sender: sender, Recipient: recipient, Body: body, TS: ts}
}

func TestSaveAndListOrdered(t *testing.T) {
	openTestStore(t)

	for i, m := range []models.Message{
		msg("m1", "thread_3_5", "3", "5", "first", 100),
		msg("m2", "thread_3_5", "5", "3", "second", 200),
		msg("m3", "thread_3_5", "3", "5", "third", 300),
		msg("mx", "thread_a_b", "a", "b", "other thread", 150),
	} {
		if err := SaveMessage(m); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	got, err := ListMessages("thread_3_5")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestGetMessageByID(t *testing.T) {
	openTestStore(t)

	if err := SaveMessage(msg("m1", "thread_3_5", "3", "5", "hello", 100)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	m, err := GetMessage("m1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if m.Body != "hello" || m.Thread != "thread_3_5" {
		t.Fatalf("unexpected message %+v", m)
	}
	if _, err := GetMessage("missing"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestMarkThreadReadFlipsAndIsIdempotent(t *testing.T) {
	openTestStore(t)

	for _, m := range []models.Message{
		msg("m1", "thread_3_5", "3", "5", "one", 100),
		msg("m2", "thread_3_5", "3", "5", "two", 200),
		msg("m3", "thread_3_5", "5", "3", "reply", 300),
	} {
		if err := SaveMessage(m); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	senders, flipped, err := MarkThreadRead("thread_3_5", "5")
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("flipped = %d, want 2", flipped)
	}
	if len(senders) != 1 || senders[0] != "3" {
		t.Fatalf("senders = %v, want [3]", senders)
	}

	// the flip is visible through both access paths
	msgs, err := ListMessages("thread_3_5")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, m := range msgs {
		if m.Recipient == "5" && !m.Read {
			t.Fatalf("message %s still unread", m.ID)
		}
		if m.ID == "m3" && m.Read {
			t.Fatalf("reader's own sent message must not flip")
		}
	}
	byID, err := GetMessage("m1")
	if err != nil || !byID.Read {
		t.Fatalf("latest pointer not updated: %+v err=%v", byID, err)
	}

	// second call flips nothing
	_, flipped, err = MarkThreadRead("thread_3_5", "5")
	if err != nil {
		t.Fatalf("second mark read failed: %v", err)
	}
	if flipped != 0 {
		t.Fatalf("second call flipped %d, want 0", flipped)
	}
}

func TestListUserThreads(t *testing.T) {
	openTestStore(t)

	for _, m := range []models.Message{
		msg("m1", "thread_3_5", "3", "5", "a", 100),
		msg("m2", "thread_5_9", "9", "5", "b", 200),
		msg("m3", "thread_1_2", "1", "2", "c", 300),
	} {
		if err := SaveMessage(m); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, err := ListUserThreads("5")
	if err != nil {
		t.Fatalf("list threads failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("user 5 has %d threads, want 2: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, tid := range got {
		seen[tid] = true
	}
	if !seen["thread_3_5"] || !seen["thread_5_9"] {
		t.Fatalf("missing threads in %v", got)
	}

	empty, err := ListUserThreads("nobody")
	if err != nil {
		t.Fatalf("list threads failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no threads, got %v", empty)
	}
}

func TestSaveRequiresOpenStore(t *testing.T) {
	if Ready() {
		t.Skip("store already open")
	}
	if err := SaveMessage(msg("m1", "thread_a_b", "a", "b", "x", 1)); err == nil {
		t.Fatalf("expected error when store not opened")
	}
}
