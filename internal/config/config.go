package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StorageKind selects the storage engine backing the queue.
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StoragePebble StorageKind = "pebble"
	StorageRedis  StorageKind = "redis"
)

// Config is the top-level process configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int
	// MaxMessageSize is the maximum accepted message body size in bytes.
	MaxMessageSize int
	// LogLevel is one of debug|info|warn|error.
	LogLevel string
	// LogFormat is one of text|json.
	LogFormat string
	// Storage selects the engine: memory|pebble|redis.
	Storage StorageKind
	// DataDir is the pebble data directory (storage=pebble).
	DataDir string
	// Fsync is the pebble WAL sync mode: always|interval|never.
	Fsync string
	// FsyncInterval is the group-commit window when Fsync=interval.
	FsyncInterval time.Duration
	// RedisAddr is the redis server address (storage=redis).
	RedisAddr string
	// LeaseDuration bounds how long a leased message stays in-flight before
	// it becomes reclaimable. Zero disables lease expiry.
	LeaseDuration time.Duration
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Port:           1337,
		MaxMessageSize: 64 << 10,
		LogLevel:       "info",
		LogFormat:      "text",
		Storage:        StorageMemory,
		Fsync:          "always",
		FsyncInterval:  5 * time.Millisecond,
		RedisAddr:      "localhost:6379",
		LeaseDuration:  30 * time.Second,
	}
}

// Validate reports configuration errors that would prevent startup.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size %d", c.MaxMessageSize)
	}
	switch c.Storage {
	case StorageMemory, StoragePebble, StorageRedis:
	default:
		return fmt.Errorf("invalid storage %q; use memory|pebble|redis", c.Storage)
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("invalid fsync %q; use always|interval|never", c.Fsync)
	}
	if c.LeaseDuration < 0 {
		return fmt.Errorf("invalid lease duration %v", c.LeaseDuration)
	}
	return nil
}

// ParseSize parses a byte count, accepting a plain number or a "<n>K"
// shorthand meaning kibibytes. Returns an error for empty, zero, or
// malformed values.
func ParseSize(value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("empty size")
	}
	if strings.HasSuffix(value, "K") || strings.HasSuffix(value, "k") {
		n, err := strconv.Atoi(value[:len(value)-1])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid size %q", value)
		}
		return n * 1024, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	return n, nil
}
