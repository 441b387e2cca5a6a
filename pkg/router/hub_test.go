package router

import (
	"encoding/json"
	"testing"
	"time"

	"courier/pkg/models"
)

func testSession(user string) *Session {
	return NewSession(user, nil, SessionOptions{SendBuffer: 8})
}

func recvFrame(t *testing.T, s *Session) models.Event {
	t.Helper()
	select {
	case data := <-s.send:
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no frame delivered to %s", s.UserID)
	}
	return models.Event{}
}

func TestPushFansOutToAllBindings(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	tab1 := testSession("u1")
	tab2 := testSession("u1")
	h.Bind(tab1)
	h.Bind(tab2)

	ev, err := models.NewEvent(models.EventMessagesRead, models.ReadReceipt{Thread: "thread_1_2", Reader: "2"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	h.Push("u1", ev)

	for _, s := range []*Session{tab1, tab2} {
		got := recvFrame(t, s)
		if got.Type != models.EventMessagesRead {
			t.Fatalf("expected %s got %s", models.EventMessagesRead, got.Type)
		}
	}
}

func TestPushToUnboundUserIsNoop(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	ev, _ := models.NewEvent(models.EventTypingStart, models.TypingSignal{Thread: "thread_1_2", UserID: "1", Recipient: "2"})
	// must not panic or block
	h.Push("nobody", ev)
}

func TestRebindIsIdempotent(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	s := testSession("u1")
	h.Bind(s)
	h.Bind(s)

	ev, _ := models.NewEvent(models.EventMessagesRead, models.ReadReceipt{Thread: "t", Reader: "r"})
	h.Push("u1", ev)
	recvFrame(t, s)

	// a double bind must not leave a second queue entry behind
	select {
	case data := <-s.send:
		t.Fatalf("unexpected duplicate frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnbindStopsDelivery(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	s := testSession("u1")
	h.Bind(s)
	h.Unbind(s)

	ev, _ := models.NewEvent(models.EventMessagesRead, models.ReadReceipt{Thread: "t", Reader: "r"})
	h.Push("u1", ev)

	if _, ok := <-s.send; ok {
		t.Fatalf("expected closed send queue after unbind")
	}
}

func TestPushOrderPreservedPerSession(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	s := testSession("u1")
	h.Bind(s)

	first, _ := models.NewEvent(models.EventReceiveMessage, models.WireMessage{TempID: "t1", Status: models.StatusSending})
	second, _ := models.NewEvent(models.EventMessageConfirmed, models.Confirmation{TempID: "t1"})
	h.Push("u1", first)
	h.Push("u1", second)

	if got := recvFrame(t, s); got.Type != models.EventReceiveMessage {
		t.Fatalf("expected optimistic frame first, got %s", got.Type)
	}
	if got := recvFrame(t, s); got.Type != models.EventMessageConfirmed {
		t.Fatalf("expected confirmation frame second, got %s", got.Type)
	}
}
