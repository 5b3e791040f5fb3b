package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis keys
const (
	redisReadyKey    = "smq:ready"    // LIST of message ids, head = next to lease
	redisMessagesKey = "smq:messages" // HASH id -> message JSON
	redisInflightKey = "smq:inflight" // HASH id -> lock_until ms (0 = no expiry)
)

// leaseScript reclaims expired leases to the ready tail, then pops up to
// ARGV[1] ids from the ready head, marks them Processing, and records the
// lease. Runs server-side so the whole transition is atomic.
var leaseScript = redis.NewScript(`
local ready, messages, inflight = KEYS[1], KEYS[2], KEYS[3]
local count = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local lock_until = tonumber(ARGV[3])

local locks = redis.call('HGETALL', inflight)
for i = 1, #locks, 2 do
  local id, lock = locks[i], tonumber(locks[i+1])
  if lock > 0 and lock <= now then
    local raw = redis.call('HGET', messages, id)
    if raw then
      local m = cjson.decode(raw)
      m['retry_count'] = m['retry_count'] + 1
      m['state'] = 'Ready'
      m['lock_until'] = cjson.null
      redis.call('HSET', messages, id, cjson.encode(m))
      redis.call('RPUSH', ready, id)
    end
    redis.call('HDEL', inflight, id)
  end
end

local out = {}
for i = 1, count do
  local id = redis.call('LPOP', ready)
  if not id then break end
  local raw = redis.call('HGET', messages, id)
  if raw then
    local m = cjson.decode(raw)
    m['state'] = 'Processing'
    if lock_until > 0 then
      m['lock_until'] = lock_until
    else
      m['lock_until'] = cjson.null
    end
    local enc = cjson.encode(m)
    redis.call('HSET', messages, id, enc)
    redis.call('HSET', inflight, id, lock_until)
    out[#out + 1] = enc
  end
end
return out
`)

// deleteScript removes each in-flight id and its record. Ids not in-flight
// are left untouched.
var deleteScript = redis.NewScript(`
local messages, inflight = KEYS[1], KEYS[2]
for i = 1, #ARGV do
  local id = ARGV[i]
  if redis.call('HDEL', inflight, id) == 1 then
    redis.call('HDEL', messages, id)
  end
end
return redis.status_reply('OK')
`)

// retryScript moves each in-flight id back to the ready tail with
// retry_count incremented.
var retryScript = redis.NewScript(`
local ready, messages, inflight = KEYS[1], KEYS[2], KEYS[3]
for i = 1, #ARGV do
  local id = ARGV[i]
  if redis.call('HDEL', inflight, id) == 1 then
    local raw = redis.call('HGET', messages, id)
    if raw then
      local m = cjson.decode(raw)
      m['retry_count'] = m['retry_count'] + 1
      m['state'] = 'Ready'
      m['lock_until'] = cjson.null
      redis.call('HSET', messages, id, cjson.encode(m))
      redis.call('RPUSH', ready, id)
    end
  end
end
return redis.status_reply('OK')
`)

// peekScript reads the leading ready ids and their records without
// mutation.
var peekScript = redis.NewScript(`
local ready, messages = KEYS[1], KEYS[2]
local count = tonumber(ARGV[1])
local ids = redis.call('LRANGE', ready, 0, count - 1)
local out = {}
for i = 1, #ids do
  local raw = redis.call('HGET', messages, ids[i])
  if raw then out[#out + 1] = raw end
end
return out
`)

// RedisStorage keeps the queue in a redis server: a LIST for FIFO order and
// two HASHes for message records and lease markers. Multi-step transitions
// run as Lua scripts, which redis executes atomically, giving the same
// single-exclusivity-domain guarantee as the other engines.
type RedisStorage struct {
	client   redis.UniversalClient
	leaseDur time.Duration
}

// NewRedisStorage creates a redis-backed engine on an existing client.
func NewRedisStorage(client redis.UniversalClient, leaseDur time.Duration) *RedisStorage {
	return &RedisStorage{client: client, leaseDur: leaseDur}
}

// Add appends to the tail of the ready list. Record write and list push
// commit together in one MULTI/EXEC.
func (s *RedisStorage) Add(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	id := msg.ID.String()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisMessagesKey, id, raw)
	pipe.RPush(ctx, redisReadyKey, id)
	_, err = pipe.Exec(ctx)
	return err
}

// Lease runs the lease script: reclaim expired, then pop up to count.
func (s *RedisStorage) Lease(ctx context.Context, count int) ([]Message, error) {
	if count <= 0 {
		return nil, nil
	}
	now := time.Now().UnixMilli()
	var lockUntil int64
	if s.leaseDur > 0 {
		lockUntil = now + s.leaseDur.Milliseconds()
	}
	res, err := leaseScript.Run(ctx, s.client,
		[]string{redisReadyKey, redisMessagesKey, redisInflightKey},
		count, now, lockUntil,
	).StringSlice()
	if err != nil {
		return nil, err
	}
	return decodeMessages(res)
}

// Delete removes acknowledged messages. Ids not in-flight are no-ops.
func (s *RedisStorage) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return deleteScript.Run(ctx, s.client,
		[]string{redisMessagesKey, redisInflightKey},
		idArgs(ids)...,
	).Err()
}

// Retry returns in-flight messages to the ready tail.
func (s *RedisStorage) Retry(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return retryScript.Run(ctx, s.client,
		[]string{redisReadyKey, redisMessagesKey, redisInflightKey},
		idArgs(ids)...,
	).Err()
}

// Purge drops all queue keys in one command.
func (s *RedisStorage) Purge(ctx context.Context) error {
	return s.client.Del(ctx, redisReadyKey, redisMessagesKey, redisInflightKey).Err()
}

// Peek returns up to count leading ready messages without mutation.
func (s *RedisStorage) Peek(ctx context.Context, count int) ([]Message, error) {
	if count <= 0 {
		return nil, nil
	}
	res, err := peekScript.Run(ctx, s.client,
		[]string{redisReadyKey, redisMessagesKey},
		count,
	).StringSlice()
	if err != nil {
		return nil, err
	}
	return decodeMessages(res)
}

// Stats returns the size of both partitions.
func (s *RedisStorage) Stats(ctx context.Context) (Stats, error) {
	pipe := s.client.Pipeline()
	ready := pipe.LLen(ctx, redisReadyKey)
	inflight := pipe.HLen(ctx, redisInflightKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{Ready: int(ready.Val()), InFlight: int(inflight.Val())}, nil
}

// Close is a no-op; the caller owns the client handle.
func (s *RedisStorage) Close() error { return nil }

func idArgs(ids []uuid.UUID) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}

func decodeMessages(raw []string) ([]Message, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
