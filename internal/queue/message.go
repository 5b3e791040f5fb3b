package queue

import "github.com/google/uuid"

// State represents the lifecycle state of a message.
type State string

const (
	// StateReady means the message is queued and available for leasing.
	StateReady State = "Ready"
	// StateProcessing means the message is leased to a consumer.
	StateProcessing State = "Processing"
	// StateDone is terminal: the message has been acknowledged and removed.
	StateDone State = "Done"
)

// Message is a queued message. The ID is assigned once at creation and is
// the sole handle for delete/retry operations. State transitions are enacted
// by the storage engine, not by the message itself.
type Message struct {
	ID   uuid.UUID `json:"id"`
	Body string    `json:"body"`
	// State mirrors the partition the message lives in: Ready messages sit
	// in the FIFO ready queue, Processing messages in the in-flight set.
	State State `json:"state"`
	// LockUntil is the lease deadline in Unix milliseconds. Nil while the
	// message is not leased, or when lease expiry is disabled.
	LockUntil  *int64 `json:"lock_until"`
	RetryCount int    `json:"retry_count"`
}

// NewMessage constructs a Ready message with a fresh UUIDv7 identifier.
// UUIDv7 is time-ordered, so IDs sort by creation time.
func NewMessage(body string) Message {
	return Message{
		ID:    uuid.Must(uuid.NewV7()),
		Body:  body,
		State: StateReady,
	}
}
