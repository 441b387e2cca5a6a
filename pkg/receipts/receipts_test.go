package receipts

import (
	"errors"
	"testing"

	"courier/pkg/models"
)

type recordingPusher struct {
	pushes map[string][]models.Event
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushes: map[string][]models.Event{}}
}

func (p *recordingPusher) Push(userID string, ev models.Event) {
	p.pushes[userID] = append(p.pushes[userID], ev)
}

func TestMarkReadPushesOncePerSender(t *testing.T) {
	pusher := newRecordingPusher()
	marker := MarkerFunc(func(threadID, reader string) ([]string, int, error) {
		if threadID != "thread_3_5" || reader != "5" {
			t.Fatalf("unexpected call %s/%s", threadID, reader)
		}
		return []string{"3"}, 4, nil
	})
	svc := New(marker, pusher)

	if err := svc.MarkRead("thread_3_5", "5"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	got := pusher.pushes["3"]
	if len(got) != 1 {
		t.Fatalf("sender received %d receipts, want exactly 1", len(got))
	}
	if got[0].Type != models.EventMessagesRead {
		t.Fatalf("event type = %s, want %s", got[0].Type, models.EventMessagesRead)
	}
	if len(pusher.pushes["5"]) != 0 {
		t.Fatalf("reader must not receive their own receipt")
	}
}

func TestMarkReadNothingFlippedIsSilent(t *testing.T) {
	pusher := newRecordingPusher()
	marker := MarkerFunc(func(threadID, reader string) ([]string, int, error) {
		return nil, 0, nil
	})
	svc := New(marker, pusher)

	if err := svc.MarkRead("thread_3_5", "5"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if len(pusher.pushes) != 0 {
		t.Fatalf("no receipts expected when nothing flipped, got %v", pusher.pushes)
	}
}

func TestMarkReadRejectsNonParticipant(t *testing.T) {
	called := false
	marker := MarkerFunc(func(threadID, reader string) ([]string, int, error) {
		called = true
		return nil, 0, nil
	})
	svc := New(marker, newRecordingPusher())

	if err := svc.MarkRead("thread_3_5", "7"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
	if called {
		t.Fatalf("store must not be touched for a non-participant")
	}
}

func TestMarkReadPropagatesStoreError(t *testing.T) {
	boom := errors.New("store down")
	svc := New(MarkerFunc(func(string, string) ([]string, int, error) {
		return nil, 0, boom
	}), newRecordingPusher())

	if err := svc.MarkRead("thread_a_b", "a"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want store error", err)
	}
}
