package client

import (
	"testing"

	"courier/pkg/models"
)

func confirmedEvent(t *testing.T, tempID, id, body string) models.Event {
	t.Helper()
	ev, err := models.NewEvent(models.EventMessageConfirmed, models.Confirmation{
		TempID: tempID,
		WireMessage: models.WireMessage{
			Message: models.Message{ID: id, Body: body},
			TempID:  tempID,
			Status:  models.StatusSent,
		},
	})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	return ev
}

func receiveEvent(t *testing.T, m models.WireMessage) models.Event {
	t.Helper()
	ev, err := models.NewEvent(models.EventReceiveMessage, m)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	return ev
}

func TestConfirmationReplacesProvisionalInPlace(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal(models.WireMessage{Message: models.Message{Body: "older"}, TempID: "t0"})
	tl.AppendLocal(models.WireMessage{Message: models.Message{Body: "hi"}, TempID: "t1"})

	if err := tl.Apply(confirmedEvent(t, "t1", "msg_1", "hi")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := tl.Messages()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (replace, not append)", len(got))
	}
	if got[1].ID != "msg_1" || got[1].Status != models.StatusSent {
		t.Fatalf("entry not upgraded: %+v", got[1])
	}
	if got[0].TempID != "t0" {
		t.Fatalf("unrelated entry moved: %+v", got[0])
	}
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal(models.WireMessage{Message: models.Message{Body: "hi"}, TempID: "t1"})

	conf := confirmedEvent(t, "t1", "msg_1", "hi")
	for i := 0; i < 3; i++ {
		if err := tl.Apply(conf); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	if got := tl.Messages(); len(got) != 1 {
		t.Fatalf("len = %d after redelivery, want 1", len(got))
	}
}

func TestOptimisticEchoThenConfirmation(t *testing.T) {
	// two bound tabs: the sender's own echo arrives before the confirmation
	tl := NewTimeline()
	echo := models.WireMessage{Message: models.Message{Body: "hi"}, TempID: "t1", Status: models.StatusSending}
	if err := tl.Apply(receiveEvent(t, echo)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := tl.Apply(confirmedEvent(t, "t1", "msg_1", "hi")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// a late redelivered echo must not downgrade the confirmed entry
	if err := tl.Apply(receiveEvent(t, echo)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := tl.Messages()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Status != models.StatusSent || got[0].ID != "msg_1" {
		t.Fatalf("entry downgraded by late echo: %+v", got[0])
	}
}

func TestMessageErrorMarksFailed(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal(models.WireMessage{Message: models.Message{Body: "hi"}, TempID: "t1"})

	ev, err := models.NewEvent(models.EventMessageError, models.SendError{TempID: "t1", Error: "persist failed"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if err := tl.Apply(ev); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := tl.Messages()
	if got[0].Status != models.StatusFailed {
		t.Fatalf("status = %q, want %q", got[0].Status, models.StatusFailed)
	}
}

func TestRecipientSideMerge(t *testing.T) {
	// recipient gets the provisional copy then the confirmation, keyed by
	// tempId even though they never called AppendLocal
	tl := NewTimeline()
	prov := models.WireMessage{Message: models.Message{Body: "hi"}, TempID: "t1", Status: models.StatusSending}
	if err := tl.Apply(receiveEvent(t, prov)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := tl.Apply(confirmedEvent(t, "t1", "msg_1", "hi")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := tl.Messages()
	if len(got) != 1 || got[0].ID != "msg_1" {
		t.Fatalf("recipient timeline did not converge: %v", got)
	}
}

func TestUnrelatedAuthoritativeMessageAppends(t *testing.T) {
	tl := NewTimeline()
	m := models.WireMessage{Message: models.Message{ID: "msg_9", Body: "fresh"}, Status: models.StatusSent}
	if err := tl.Apply(receiveEvent(t, m)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := tl.Apply(receiveEvent(t, m)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := tl.Messages(); len(got) != 1 {
		t.Fatalf("duplicate authoritative id appended: %v", got)
	}
}
