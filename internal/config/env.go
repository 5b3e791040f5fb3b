package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays SMQ_* environment variables onto cfg. Malformed values
// are ignored and the existing value kept.
func FromEnv(cfg *Config) {
	if v := os.Getenv("SMQ_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("SMQ_MAX_MESSAGE_SIZE"); v != "" {
		if n, err := ParseSize(v); err == nil {
			cfg.MaxMessageSize = n
		}
	}
	if v := os.Getenv("SMQ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SMQ_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SMQ_STORAGE"); v != "" {
		cfg.Storage = StorageKind(v)
	}
	if v := os.Getenv("SMQ_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SMQ_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("SMQ_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FsyncInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("SMQ_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SMQ_LEASE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LeaseDuration = time.Duration(n) * time.Millisecond
		}
	}
}
