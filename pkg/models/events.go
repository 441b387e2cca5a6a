package models

import "encoding/json"

// Event types exchanged over a live channel.
const (
	EventJoin             = "join"
	EventSendMessage      = "send_message"
	EventReceiveMessage   = "receive_message"
	EventMessageConfirmed = "message_confirmed"
	EventMessageError     = "message_error"
	EventMarkAsRead       = "mark_as_read"
	EventMessagesRead     = "messages_read"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
)

// Event is the envelope for every frame on a live channel, both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals v into an Event envelope of the given type.
func NewEvent(typ string, v interface{}) (Event, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: b}, nil
}

// Join binds the connection to the user's logical channel. The user id must
// match the authenticated identity on the connection.
type Join struct {
	UserID string `json:"userId"`
}

// SendRequest is a client send intent.
type SendRequest struct {
	Sender      string   `json:"sender_id"`
	Recipient   string   `json:"recipient_id"`
	Body        string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
	// TempID is the client-chosen provisional id; the server generates one
	// when absent so the confirmation can always be keyed back.
	TempID string `json:"tempId,omitempty"`
}

// Confirmation reconciles a provisional message with its persisted record.
type Confirmation struct {
	TempID string `json:"tempId"`
	WireMessage
}

// SendError reports a failed send to the sender's channel only.
type SendError struct {
	TempID    string `json:"tempId"`
	Error     string `json:"error"`
	Sender    string `json:"sender_id"`
	Recipient string `json:"recipient_id"`
}

// ReadRequest asks the server to mark a thread read for the given user.
type ReadRequest struct {
	Thread string `json:"thread_id"`
	UserID string `json:"user_id"`
}

// ReadReceipt notifies a sender that reader has read their messages in a
// thread. Best-effort: it is pushed once per distinct sender and not
// re-driven on reconnect.
type ReadReceipt struct {
	Thread string `json:"thread_id"`
	Reader string `json:"reader_id"`
}

// TypingSignal is an ephemeral typing indicator. Never persisted.
type TypingSignal struct {
	Thread    string `json:"thread_id"`
	UserID    string `json:"user_id"`
	Recipient string `json:"recipient_id"`
}
