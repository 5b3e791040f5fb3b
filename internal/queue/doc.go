// Package queue implements the message lifecycle and the storage engines
// behind it.
//
// A message moves between exactly two partitions: the FIFO ready queue and
// the in-flight set. Lease moves head messages ready -> in-flight, Delete
// acknowledges and removes them, Retry returns them to the ready tail with
// retry_count incremented, so a repeatedly failing message cycles behind
// the rest of the queue instead of starving it. Purge clears both
// partitions; Peek previews the ready head without mutation.
//
// Every engine treats the two partitions as one exclusivity domain: the
// memory engine holds a single mutex for the whole operation, the pebble
// engine commits each operation as one batch behind a mutex, and the redis
// engine runs multi-step transitions as server-side Lua scripts. Concurrent
// Lease calls therefore never receive overlapping messages.
//
// Leases carry a lock_until deadline. Expired in-flight messages are
// reclaimed to the ready tail (retry_count+1) lazily at the start of the
// next Lease call; there is no background sweeper. A lease duration of zero
// disables expiry, in which case a crashed consumer strands its messages
// until a manual Retry.
package queue
