package models

// Message is the authoritative, store-owned record of a single message.
// Records are immutable after creation except the Read flag, which flips
// false -> true exactly once via the read-receipt path.
type Message struct {
	ID        string   `json:"id"`
	Thread    string   `json:"thread_id"`
	Sender    string   `json:"sender_id"`
	Recipient string   `json:"recipient_id"`
	Body      string   `json:"body"`
	// Attachments is an ordered list of opaque reference strings (URLs).
	Attachments []string `json:"attachments,omitempty"`
	Read        bool     `json:"is_read"`
	// TS is the server-assigned creation time in nanoseconds. It is the
	// sole ordering key for history reconstruction.
	TS int64 `json:"created_at"`
}

// Status values carried on pushed messages so clients can tell a
// provisional copy from a confirmed one.
const (
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// WireMessage is the message shape pushed over a live channel. A
// provisional push carries TempID and StatusSending before the record
// exists in the store; the confirmation push repeats the TempID alongside
// the authoritative fields so clients can reconcile the two.
type WireMessage struct {
	Message
	TempID string `json:"tempId,omitempty"`
	Status string `json:"status,omitempty"`
}

// ThreadSummary is one inbox row: the latest message of a thread plus the
// unread count for the querying user. Recomputed from the message table on
// every query, never cached.
type ThreadSummary struct {
	Thread    string `json:"thread_id"`
	OtherUser string `json:"other_user_id"`
	LastBody  string `json:"last_message"`
	LastTS    int64  `json:"last_message_at"`
	Unread    int    `json:"unread_count"`
}
