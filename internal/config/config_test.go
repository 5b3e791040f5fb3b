package config

import (
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"65536", 65536, false},
		{"1", 1, false},
		{"64K", 65536, false},
		{"64k", 65536, false},
		{"1K", 1024, false},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"0K", 0, true},
		{"abc", 0, true},
		{"12KB", 0, true},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseSize(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("SMQ_PORT", "8080")
	t.Setenv("SMQ_MAX_MESSAGE_SIZE", "16K")
	t.Setenv("SMQ_LOG_LEVEL", "debug")
	t.Setenv("SMQ_STORAGE", "pebble")
	t.Setenv("SMQ_LEASE_MS", "5000")

	cfg := Default()
	FromEnv(&cfg)

	if cfg.Port != 8080 {
		t.Fatalf("port: %d", cfg.Port)
	}
	if cfg.MaxMessageSize != 16384 {
		t.Fatalf("max size: %d", cfg.MaxMessageSize)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %s", cfg.LogLevel)
	}
	if cfg.Storage != StoragePebble {
		t.Fatalf("storage: %s", cfg.Storage)
	}
	if cfg.LeaseDuration != 5*time.Second {
		t.Fatalf("lease: %v", cfg.LeaseDuration)
	}
}

func TestFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("SMQ_PORT", "not-a-number")
	t.Setenv("SMQ_MAX_MESSAGE_SIZE", "0")

	cfg := Default()
	FromEnv(&cfg)

	if cfg.Port != Default().Port {
		t.Fatalf("port should keep default: %d", cfg.Port)
	}
	if cfg.MaxMessageSize != Default().MaxMessageSize {
		t.Fatalf("max size should keep default: %d", cfg.MaxMessageSize)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := Default()
	bad.Storage = "etcd"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown storage")
	}

	bad = Default()
	bad.Port = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for port 0")
	}

	bad = Default()
	bad.Fsync = "sometimes"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for bad fsync mode")
	}
}
