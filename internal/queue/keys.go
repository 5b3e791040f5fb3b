package queue

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Pebble keyspace, all under mq/:
//
//	mq/meta                - lastSeq (8B BE)
//	mq/msg/{id}            - message record (JSON)
//	mq/ready/{seq}         - FIFO index, value = message id (16B)
//	mq/inflight/{id}       - lease marker, value = lock_until ms (8B BE, 0 = no expiry)
//
// The ready index is keyed by a persisted monotonic sequence rather than the
// message id, so a retried message re-enters at the tail instead of sorting
// back to its original position.
const (
	keyMeta        = "mq/meta"
	prefixMsg      = "mq/msg/"
	prefixReady    = "mq/ready/"
	prefixInflight = "mq/inflight/"
)

func msgKey(id uuid.UUID) []byte {
	key := make([]byte, len(prefixMsg)+16)
	copy(key, prefixMsg)
	copy(key[len(prefixMsg):], id[:])
	return key
}

func readyKey(seq uint64) []byte {
	key := make([]byte, len(prefixReady)+8)
	copy(key, prefixReady)
	binary.BigEndian.PutUint64(key[len(prefixReady):], seq)
	return key
}

func inflightKey(id uuid.UUID) []byte {
	key := make([]byte, len(prefixInflight)+16)
	copy(key, prefixInflight)
	copy(key[len(prefixInflight):], id[:])
	return key
}

// keyRange returns start and end keys for scanning a prefix. The end key is
// exclusive (prefix + 0xFF).
func keyRange(prefix string) ([]byte, []byte) {
	start := []byte(prefix)
	end := make([]byte, len(prefix)+1)
	copy(end, prefix)
	end[len(prefix)] = 0xFF
	return start, end
}
