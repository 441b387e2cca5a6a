package relay

import (
	"errors"
	"testing"

	"courier/pkg/models"
)

type capturePusher struct {
	user string
	evs  []models.Event
}

func (p *capturePusher) Push(userID string, ev models.Event) {
	p.user = userID
	p.evs = append(p.evs, ev)
}

func TestForwardGoesToOtherParticipantOnly(t *testing.T) {
	p := &capturePusher{}
	r := New(p)

	err := r.Forward(models.EventTypingStart, models.TypingSignal{
		Thread: "thread_3_5", UserID: "3", Recipient: "5",
	})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if p.user != "5" {
		t.Fatalf("signal delivered to %q, want 5", p.user)
	}
	if len(p.evs) != 1 || p.evs[0].Type != models.EventTypingStart {
		t.Fatalf("unexpected events %v", p.evs)
	}
}

func TestForwardDerivesRecipientFromThread(t *testing.T) {
	p := &capturePusher{}
	r := New(p)

	if err := r.Forward(models.EventTypingStop, models.TypingSignal{Thread: "thread_3_5", UserID: "5"}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if p.user != "3" {
		t.Fatalf("signal delivered to %q, want 3", p.user)
	}
}

func TestForwardRejectsOutsider(t *testing.T) {
	r := New(&capturePusher{})
	err := r.Forward(models.EventTypingStart, models.TypingSignal{Thread: "thread_3_5", UserID: "9"})
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestForwardRejectsNonTypingEvent(t *testing.T) {
	r := New(&capturePusher{})
	if err := r.Forward(models.EventSendMessage, models.TypingSignal{Thread: "thread_a_b", UserID: "a"}); err == nil {
		t.Fatalf("expected error for non-typing event type")
	}
}
