package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/rzbill/smq/internal/config"
	"github.com/rzbill/smq/internal/queue"
	pebblestore "github.com/rzbill/smq/internal/storage/pebble"
)

// Runtime wires the configured storage engine into a single-node instance.
// It owns the engine's underlying handles (pebble DB, redis client) and
// closes them when the runtime closes.
type Runtime struct {
	config cfgpkg.Config
	store  queue.Storage

	db    *pebblestore.DB
	redis *redis.Client
}

// Open validates the config, initializes the selected storage engine, and
// returns a Runtime.
func Open(cfg cfgpkg.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{config: cfg}

	switch cfg.Storage {
	case cfgpkg.StorageMemory:
		rt.store = queue.NewMemoryStorage(cfg.LeaseDuration)

	case cfgpkg.StoragePebble:
		fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = cfgpkg.DefaultDataDir()
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       dataDir,
			Fsync:         fsync,
			FsyncInterval: cfg.FsyncInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("open pebble at %s: %w", dataDir, err)
		}
		store, err := queue.OpenPebbleStorage(db, cfg.LeaseDuration)
		if err != nil {
			db.Close()
			return nil, err
		}
		rt.db = db
		rt.store = store

	case cfgpkg.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rt.redis = client
		rt.store = queue.NewRedisStorage(client, cfg.LeaseDuration)

	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	return rt, nil
}

// Storage returns the active storage engine.
func (r *Runtime) Storage() queue.Storage { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// CheckHealth verifies the storage engine is reachable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("storage not open")
	}
	if r.redis != nil {
		return r.redis.Ping(ctx).Err()
	}
	if r.db != nil {
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		it.Close()
	}
	return nil
}

// Close releases the storage engine and its underlying handles.
func (r *Runtime) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	return errors.Join(errs...)
}
