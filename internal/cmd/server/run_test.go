package serverrun

import (
	"context"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/smq/internal/config"
)

func TestAddrDefaultsToConfigPort(t *testing.T) {
	opts := Options{Config: cfgpkg.Default()}
	if opts.HTTPAddr != "" {
		t.Fatalf("unexpected addr override: %q", opts.HTTPAddr)
	}
	if opts.Config.Port != 1337 {
		t.Fatalf("default port changed: %d", opts.Config.Port)
	}
}

// Run starts a real listener, so this is a minimal lifecycle check: start
// on an ephemeral port, cancel, and expect a clean exit.
func TestRunStartsAndStops(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping server lifecycle test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, Options{HTTPAddr: "127.0.0.1:0", Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Storage = "bogus"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := Run(ctx, Options{Config: cfg}); err == nil {
		t.Fatal("expected config error")
	}
}
