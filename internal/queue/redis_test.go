package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// openTestRedis dials a local redis server on DB 15 and skips the test when
// none is reachable.
func openTestRedis(t *testing.T, leaseDur time.Duration) Storage {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return NewRedisStorage(client, leaseDur)
}

func TestRedisStorage(t *testing.T) {
	runStorageSuite(t, openTestRedis)
}
