package queue

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// nowMs returns current time in milliseconds since Unix epoch. Overridable
// in tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// MemoryStorage keeps both partitions in process memory behind a single
// mutex. It is the default engine and carries no durability.
type MemoryStorage struct {
	mu       sync.Mutex
	ready    []Message
	inflight map[uuid.UUID]Message
	leaseDur time.Duration
}

// NewMemoryStorage creates an empty in-memory engine. leaseDur bounds how
// long a leased message stays in-flight before it becomes reclaimable;
// zero disables expiry.
func NewMemoryStorage(leaseDur time.Duration) *MemoryStorage {
	return &MemoryStorage{
		inflight: make(map[uuid.UUID]Message),
		leaseDur: leaseDur,
	}
}

// Add appends to the tail of the ready queue.
func (s *MemoryStorage) Add(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, msg)
	return nil
}

// Lease moves up to count messages from the ready head into the in-flight
// set. Expired leases are reclaimed to the ready tail first.
func (s *MemoryStorage) Lease(_ context.Context, count int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()
	s.reclaimExpiredLocked(now)

	if count > len(s.ready) {
		count = len(s.ready)
	}
	if count <= 0 {
		return nil, nil
	}

	leased := make([]Message, count)
	copy(leased, s.ready[:count])
	s.ready = append([]Message(nil), s.ready[count:]...)

	for i := range leased {
		leased[i].State = StateProcessing
		if s.leaseDur > 0 {
			deadline := now + s.leaseDur.Milliseconds()
			leased[i].LockUntil = &deadline
		}
		s.inflight[leased[i].ID] = leased[i]
	}
	return leased, nil
}

// reclaimExpiredLocked returns expired in-flight messages to the ready tail
// with their retry count incremented. Caller holds the mutex.
func (s *MemoryStorage) reclaimExpiredLocked(now int64) {
	var expired []Message
	for id, msg := range s.inflight {
		if msg.LockUntil != nil && *msg.LockUntil <= now {
			delete(s.inflight, id)
			msg.RetryCount++
			msg.State = StateReady
			msg.LockUntil = nil
			expired = append(expired, msg)
		}
	}
	// map order is random; UUIDv7 sorts by creation time
	sort.Slice(expired, func(i, j int) bool {
		return bytes.Compare(expired[i].ID[:], expired[j].ID[:]) < 0
	})
	s.ready = append(s.ready, expired...)
}

// Delete removes acknowledged messages. Ids not in-flight are no-ops.
func (s *MemoryStorage) Delete(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.inflight, id)
	}
	return nil
}

// Retry returns in-flight messages to the ready tail with retry count
// incremented. Ids not in-flight are skipped.
func (s *MemoryStorage) Retry(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		msg, ok := s.inflight[id]
		if !ok {
			continue
		}
		delete(s.inflight, id)
		msg.RetryCount++
		msg.State = StateReady
		msg.LockUntil = nil
		s.ready = append(s.ready, msg)
	}
	return nil
}

// Purge empties both partitions.
func (s *MemoryStorage) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = nil
	s.inflight = make(map[uuid.UUID]Message)
	return nil
}

// Peek returns up to count messages from the ready head without mutation.
func (s *MemoryStorage) Peek(_ context.Context, count int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count > len(s.ready) {
		count = len(s.ready)
	}
	if count <= 0 {
		return nil, nil
	}
	out := make([]Message, count)
	copy(out, s.ready[:count])
	return out, nil
}

// Stats returns the size of both partitions.
func (s *MemoryStorage) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Ready: len(s.ready), InFlight: len(s.inflight)}, nil
}

// Close is a no-op for the in-memory engine.
func (s *MemoryStorage) Close() error { return nil }
