package queue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	pebblestore "github.com/rzbill/smq/internal/storage/pebble"
)

// PebbleStorage is the durable engine. Message records, the ready index,
// and in-flight markers live in one Pebble keyspace; every operation is a
// single committed batch behind one mutex, so both partitions always move
// together.
type PebbleStorage struct {
	db       *pebblestore.DB
	leaseDur time.Duration

	mu      sync.Mutex
	lastSeq uint64
}

// OpenPebbleStorage initializes the engine and restores lastSeq from
// metadata if present.
func OpenPebbleStorage(db *pebblestore.DB, leaseDur time.Duration) (*PebbleStorage, error) {
	s := &PebbleStorage{db: db, leaseDur: leaseDur}
	meta, err := db.Get([]byte(keyMeta))
	switch {
	case err == nil && len(meta) >= 8:
		s.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read meta: %w", err)
	}
	return s, nil
}

func (s *PebbleStorage) setMeta(b *pebble.Batch) error {
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], s.lastSeq)
	return b.Set([]byte(keyMeta), meta[:], nil)
}

func (s *PebbleStorage) putMessage(b *pebble.Batch, msg Message) error {
	val, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.Set(msgKey(msg.ID), val, nil)
}

func (s *PebbleStorage) getMessage(id uuid.UUID) (Message, error) {
	val, err := s.db.Get(msgKey(id))
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(val, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message %s: %w", id, err)
	}
	return msg, nil
}

// Add appends to the tail of the ready queue.
func (s *PebbleStorage) Add(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	s.lastSeq++
	if err := s.putMessage(b, msg); err != nil {
		return err
	}
	if err := b.Set(readyKey(s.lastSeq), msg.ID[:], nil); err != nil {
		return err
	}
	if err := s.setMeta(b); err != nil {
		return err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		s.lastSeq--
		return err
	}
	return nil
}

// Lease reclaims expired leases to the ready tail, then moves up to count
// messages from the ready head into the in-flight set. Both phases commit
// as one batch.
func (s *PebbleStorage) Lease(ctx context.Context, count int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	// indexed batch: the ready scan below must observe keys written by
	// reclaimExpired in this same operation
	b := s.db.NewIndexedBatch()
	defer b.Close()

	if err := s.reclaimExpired(b, now); err != nil {
		return nil, err
	}

	// collect head entries first; mutating an indexed batch invalidates
	// iterators open on it
	type readyEntry struct {
		key []byte
		id  uuid.UUID
	}
	lo, hi := keyRange(prefixReady)
	iter, err := b.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	var head []readyEntry
	for ok := iter.First(); ok && len(head) < count; ok = iter.Next() {
		if len(iter.Value()) != 16 {
			continue
		}
		var id uuid.UUID
		copy(id[:], iter.Value())
		head = append(head, readyEntry{key: append([]byte(nil), iter.Key()...), id: id})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	var leased []Message
	for _, e := range head {
		msg, err := s.batchMessage(b, e.id)
		if err != nil {
			return nil, err
		}

		msg.State = StateProcessing
		var lock int64
		if s.leaseDur > 0 {
			lock = now + s.leaseDur.Milliseconds()
			msg.LockUntil = &lock
		}
		if err := s.putMessage(b, msg); err != nil {
			return nil, err
		}
		if err := b.Delete(e.key, nil); err != nil {
			return nil, err
		}
		var lockBuf [8]byte
		binary.BigEndian.PutUint64(lockBuf[:], uint64(lock))
		if err := b.Set(inflightKey(e.id), lockBuf[:], nil); err != nil {
			return nil, err
		}
		leased = append(leased, msg)
	}

	if err := s.setMeta(b); err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return leased, nil
}

// batchMessage reads a message record through an indexed batch, so
// uncommitted writes in the current operation are visible.
func (s *PebbleStorage) batchMessage(b *pebble.Batch, id uuid.UUID) (Message, error) {
	val, closer, err := b.Get(msgKey(id))
	if err != nil {
		return Message{}, err
	}
	defer closer.Close()
	var msg Message
	if err := json.Unmarshal(val, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message %s: %w", id, err)
	}
	return msg, nil
}

// reclaimExpired moves expired in-flight messages back to the ready tail
// with retry count incremented. Writes go through the caller's batch.
func (s *PebbleStorage) reclaimExpired(b *pebble.Batch, now int64) error {
	lo, hi := keyRange(prefixInflight)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		if len(iter.Value()) != 8 {
			continue
		}
		lock := int64(binary.BigEndian.Uint64(iter.Value()))
		if lock == 0 || lock > now {
			continue
		}
		var id uuid.UUID
		copy(id[:], iter.Key()[len(prefixInflight):])

		msg, err := s.getMessage(id)
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				// orphaned marker; drop it
				_ = b.Delete(append([]byte(nil), iter.Key()...), nil)
				continue
			}
			return err
		}
		msg.RetryCount++
		msg.State = StateReady
		msg.LockUntil = nil
		s.lastSeq++
		if err := s.putMessage(b, msg); err != nil {
			return err
		}
		if err := b.Set(readyKey(s.lastSeq), id[:], nil); err != nil {
			return err
		}
		if err := b.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes acknowledged messages. Ids not in-flight are no-ops.
func (s *PebbleStorage) Delete(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	for _, id := range ids {
		if _, err := s.db.Get(inflightKey(id)); err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return err
		}
		if err := b.Delete(inflightKey(id), nil); err != nil {
			return err
		}
		if err := b.Delete(msgKey(id), nil); err != nil {
			return err
		}
	}
	return s.db.CommitBatch(ctx, b)
}

// Retry returns in-flight messages to the ready tail with retry count
// incremented. Ids not in-flight are skipped.
func (s *PebbleStorage) Retry(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	// the in-flight check reads the committed store while deletions
	// accumulate in the batch, so a repeated id would pass twice and get
	// two ready entries; process each id once
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.db.Get(inflightKey(id)); err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return err
		}
		msg, err := s.getMessage(id)
		if err != nil {
			return err
		}
		msg.RetryCount++
		msg.State = StateReady
		msg.LockUntil = nil
		s.lastSeq++
		if err := s.putMessage(b, msg); err != nil {
			return err
		}
		if err := b.Set(readyKey(s.lastSeq), id[:], nil); err != nil {
			return err
		}
		if err := b.Delete(inflightKey(id), nil); err != nil {
			return err
		}
	}
	if err := s.setMeta(b); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// Purge empties both partitions. lastSeq is kept; old sequence numbers are
// never reused.
func (s *PebbleStorage) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	for _, prefix := range []string{prefixMsg, prefixReady, prefixInflight} {
		lo, hi := keyRange(prefix)
		if err := b.DeleteRange(lo, hi, nil); err != nil {
			return err
		}
	}
	return s.db.CommitBatch(ctx, b)
}

// Peek returns up to count messages from the ready head without mutation.
func (s *PebbleStorage) Peek(_ context.Context, count int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := keyRange(prefixReady)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Message
	for ok := iter.First(); ok && len(out) < count; ok = iter.Next() {
		if len(iter.Value()) != 16 {
			continue
		}
		var id uuid.UUID
		copy(id[:], iter.Value())
		msg, err := s.getMessage(id)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Stats counts both partitions.
func (s *PebbleStorage) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, p := range []struct {
		prefix string
		n      *int
	}{
		{prefixReady, &st.Ready},
		{prefixInflight, &st.InFlight},
	} {
		lo, hi := keyRange(p.prefix)
		iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
		if err != nil {
			return Stats{}, err
		}
		for ok := iter.First(); ok; ok = iter.Next() {
			*p.n++
		}
		if err := iter.Close(); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// Close is a no-op; the runtime owns the underlying DB handle.
func (s *PebbleStorage) Close() error { return nil }
