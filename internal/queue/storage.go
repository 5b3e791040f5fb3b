package queue

import (
	"context"

	"github.com/google/uuid"
)

// Stats is a point-in-time count of both partitions.
type Stats struct {
	Ready    int `json:"ready"`
	InFlight int `json:"in_flight"`
}

// Storage is the contract every queue engine implements. All operations are
// atomic with respect to each other: the ready queue and the in-flight set
// form one exclusivity domain, so no interleaving can lease a message to two
// consumers or lose one between partitions.
type Storage interface {
	// Add appends the message to the tail of the ready queue.
	Add(ctx context.Context, msg Message) error

	// Lease removes up to count messages from the head of the ready queue,
	// marks each Processing, moves them into the in-flight set, and returns
	// them in queue order. Fewer than count available is not an error.
	Lease(ctx context.Context, count int) ([]Message, error)

	// Delete permanently removes each id found in the in-flight set.
	// Unknown or non-leased ids are ignored.
	Delete(ctx context.Context, ids []uuid.UUID) error

	// Retry moves each id found in the in-flight set back to the tail of
	// the ready queue with its retry count incremented. Unknown ids are
	// skipped.
	Retry(ctx context.Context, ids []uuid.UUID) error

	// Purge empties both partitions unconditionally.
	Purge(ctx context.Context) error

	// Peek returns up to count messages from the head of the ready queue
	// without removing them or changing their state.
	Peek(ctx context.Context, count int) ([]Message, error)

	// Stats returns the current size of both partitions.
	Stats(ctx context.Context) (Stats, error)

	// Close releases engine resources.
	Close() error
}
