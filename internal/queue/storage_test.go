package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// storageFactory opens a fresh, empty engine for a test.
type storageFactory func(t *testing.T, leaseDur time.Duration) Storage

// runStorageSuite exercises the Storage contract against any engine.
func runStorageSuite(t *testing.T, open storageFactory) {
	ctx := context.Background()

	t.Run("LeaseReturnsAtMostAvailable", func(t *testing.T) {
		s := open(t, 0)
		mustAdd(t, s, "a")
		mustAdd(t, s, "b")
		msgs, err := s.Lease(ctx, 5)
		if err != nil {
			t.Fatalf("lease: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("leased %d, want 2", len(msgs))
		}
		if msgs[0].Body != "a" || msgs[1].Body != "b" {
			t.Fatalf("order: %q, %q", msgs[0].Body, msgs[1].Body)
		}
		for _, m := range msgs {
			if m.State != StateProcessing {
				t.Fatalf("state: %s", m.State)
			}
		}
	})

	t.Run("ScenarioLifecycle", func(t *testing.T) {
		s := open(t, 0)
		a := mustAdd(t, s, "A")
		mustAdd(t, s, "B")

		got, err := s.Lease(ctx, 1)
		if err != nil || len(got) != 1 {
			t.Fatalf("lease: %v %v", got, err)
		}
		if got[0].ID != a.ID || got[0].State != StateProcessing {
			t.Fatalf("expected A processing, got %+v", got[0])
		}

		if err := s.Retry(ctx, []uuid.UUID{a.ID}); err != nil {
			t.Fatalf("retry: %v", err)
		}
		peeked, err := s.Peek(ctx, 2)
		if err != nil {
			t.Fatalf("peek: %v", err)
		}
		if len(peeked) != 2 || peeked[0].Body != "B" || peeked[1].Body != "A" {
			t.Fatalf("retried message should cycle to the tail: %+v", peeked)
		}
		if peeked[1].RetryCount != 1 {
			t.Fatalf("retry count: %d", peeked[1].RetryCount)
		}

		got, err = s.Lease(ctx, 2)
		if err != nil || len(got) != 2 {
			t.Fatalf("lease 2: %v %v", got, err)
		}
		if got[0].Body != "B" || got[1].Body != "A" {
			t.Fatalf("order: %q, %q", got[0].Body, got[1].Body)
		}

		if err := s.Delete(ctx, []uuid.UUID{got[0].ID}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Ready != 0 || st.InFlight != 1 {
			t.Fatalf("stats after delete: %+v", st)
		}

		if err := s.Purge(ctx); err != nil {
			t.Fatalf("purge: %v", err)
		}
		st, err = s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Ready != 0 || st.InFlight != 0 {
			t.Fatalf("stats after purge: %+v", st)
		}
	})

	t.Run("LeaseExclusivity", func(t *testing.T) {
		s := open(t, 0)
		const total = 200
		for i := 0; i < total; i++ {
			mustAdd(t, s, "m")
		}

		var mu sync.Mutex
		seen := make(map[uuid.UUID]int)
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					msgs, err := s.Lease(ctx, 7)
					if err != nil {
						t.Errorf("lease: %v", err)
						return
					}
					if len(msgs) == 0 {
						return
					}
					mu.Lock()
					for _, m := range msgs {
						seen[m.ID]++
					}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(seen) != total {
			t.Fatalf("leased %d distinct messages, want %d", len(seen), total)
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("message %s leased %d times", id, n)
			}
		}
	})

	t.Run("IdempotentDelete", func(t *testing.T) {
		s := open(t, 0)
		m := mustAdd(t, s, "x")
		if _, err := s.Lease(ctx, 1); err != nil {
			t.Fatalf("lease: %v", err)
		}
		if err := s.Delete(ctx, []uuid.UUID{m.ID}); err != nil {
			t.Fatalf("first delete: %v", err)
		}
		// second delete and deleting a never-leased id are no-ops
		if err := s.Delete(ctx, []uuid.UUID{m.ID, uuid.Must(uuid.NewV7())}); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Ready != 0 || st.InFlight != 0 {
			t.Fatalf("stats: %+v", st)
		}
	})

	t.Run("RetryRoundTrip", func(t *testing.T) {
		s := open(t, 0)
		orig := mustAdd(t, s, "payload")
		leased, err := s.Lease(ctx, 1)
		if err != nil || len(leased) != 1 {
			t.Fatalf("lease: %v %v", leased, err)
		}
		if err := s.Retry(ctx, []uuid.UUID{orig.ID}); err != nil {
			t.Fatalf("retry: %v", err)
		}
		again, err := s.Lease(ctx, 1)
		if err != nil || len(again) != 1 {
			t.Fatalf("second lease: %v %v", again, err)
		}
		m := again[0]
		if m.ID != orig.ID || m.Body != "payload" {
			t.Fatalf("identity changed: %+v", m)
		}
		if m.RetryCount != 1 {
			t.Fatalf("retry count: %d", m.RetryCount)
		}
	})

	t.Run("RetryDuplicateIDsReleasesOnce", func(t *testing.T) {
		s := open(t, 0)
		m := mustAdd(t, s, "x")
		leased, err := s.Lease(ctx, 1)
		if err != nil || len(leased) != 1 {
			t.Fatalf("lease: %v %v", leased, err)
		}

		if err := s.Retry(ctx, []uuid.UUID{m.ID, m.ID}); err != nil {
			t.Fatalf("retry: %v", err)
		}
		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Ready != 1 || st.InFlight != 0 {
			t.Fatalf("duplicate retry ids corrupted partitions: %+v", st)
		}

		again, err := s.Lease(ctx, 2)
		if err != nil {
			t.Fatalf("re-lease: %v", err)
		}
		if len(again) != 1 || again[0].ID != m.ID || again[0].RetryCount != 1 {
			t.Fatalf("message must come back exactly once: %+v", again)
		}
	})

	t.Run("RetrySkipsUnknownIDs", func(t *testing.T) {
		s := open(t, 0)
		m := mustAdd(t, s, "x")
		if err := s.Retry(ctx, []uuid.UUID{m.ID}); err != nil {
			t.Fatalf("retry of non-leased id should be a no-op: %v", err)
		}
		st, _ := s.Stats(ctx)
		if st.Ready != 1 || st.InFlight != 0 {
			t.Fatalf("stats: %+v", st)
		}
		peeked, _ := s.Peek(ctx, 1)
		if len(peeked) != 1 || peeked[0].RetryCount != 0 {
			t.Fatalf("retry count should be untouched: %+v", peeked)
		}
	})

	t.Run("PeekNonDestructive", func(t *testing.T) {
		s := open(t, 0)
		mustAdd(t, s, "1")
		mustAdd(t, s, "2")
		mustAdd(t, s, "3")

		first, err := s.Peek(ctx, 2)
		if err != nil || len(first) != 2 {
			t.Fatalf("peek: %v %v", first, err)
		}
		second, err := s.Peek(ctx, 2)
		if err != nil || len(second) != 2 {
			t.Fatalf("peek: %v %v", second, err)
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Fatalf("peek changed head: %v vs %v", first[i].ID, second[i].ID)
			}
			if first[i].State != StateReady {
				t.Fatalf("peek changed state: %s", first[i].State)
			}
		}
		st, _ := s.Stats(ctx)
		if st.Ready != 3 || st.InFlight != 0 {
			t.Fatalf("stats after peek: %+v", st)
		}
	})

	t.Run("Conservation", func(t *testing.T) {
		s := open(t, 0)
		for i := 0; i < 10; i++ {
			mustAdd(t, s, "m")
		}
		leased, err := s.Lease(ctx, 4)
		if err != nil {
			t.Fatalf("lease: %v", err)
		}
		if err := s.Delete(ctx, []uuid.UUID{leased[0].ID}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Retry(ctx, []uuid.UUID{leased[1].ID}); err != nil {
			t.Fatalf("retry: %v", err)
		}
		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		// 10 added - 1 deleted = 9 alive: 6 ready + 1 retried + 2 in-flight
		if st.Ready+st.InFlight != 9 {
			t.Fatalf("conservation violated: %+v", st)
		}
		if st.Ready != 7 || st.InFlight != 2 {
			t.Fatalf("partition counts: %+v", st)
		}
	})

	t.Run("ExpiredLeaseReclaimed", func(t *testing.T) {
		s := open(t, 50*time.Millisecond)
		orig := mustAdd(t, s, "flaky")
		leased, err := s.Lease(ctx, 1)
		if err != nil || len(leased) != 1 {
			t.Fatalf("lease: %v %v", leased, err)
		}
		if leased[0].LockUntil == nil {
			t.Fatalf("expected lock_until to be set")
		}

		time.Sleep(120 * time.Millisecond)

		again, err := s.Lease(ctx, 1)
		if err != nil || len(again) != 1 {
			t.Fatalf("reclaim lease: %v %v", again, err)
		}
		if again[0].ID != orig.ID {
			t.Fatalf("wrong message reclaimed: %v", again[0].ID)
		}
		if again[0].RetryCount != 1 {
			t.Fatalf("reclaim should count as a retry: %d", again[0].RetryCount)
		}
	})

	t.Run("NoExpiryWhenDisabled", func(t *testing.T) {
		s := open(t, 0)
		mustAdd(t, s, "held")
		if _, err := s.Lease(ctx, 1); err != nil {
			t.Fatalf("lease: %v", err)
		}
		time.Sleep(60 * time.Millisecond)
		again, err := s.Lease(ctx, 1)
		if err != nil {
			t.Fatalf("lease: %v", err)
		}
		if len(again) != 0 {
			t.Fatalf("message should stay in-flight: %+v", again)
		}
	})
}

func mustAdd(t *testing.T, s Storage, body string) Message {
	t.Helper()
	msg := NewMessage(body)
	if err := s.Add(context.Background(), msg); err != nil {
		t.Fatalf("add: %v", err)
	}
	return msg
}
