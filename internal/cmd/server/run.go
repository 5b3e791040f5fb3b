package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/smq/internal/config"
	"github.com/rzbill/smq/internal/runtime"
	httpserver "github.com/rzbill/smq/internal/server/http"
	logpkg "github.com/rzbill/smq/pkg/log"
)

// Options carries the resolved process configuration plus an optional
// listen address override.
type Options struct {
	HTTPAddr string
	Config   cfgpkg.Config
}

// Run starts the HTTP server over the configured storage engine and blocks
// until ctx is cancelled or the server fails.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// pass a plain context still get SIGINT/SIGTERM handling.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	procLogger, err := logpkg.ApplyConfig(&logpkg.Config{
		Level:  opts.Config.LogLevel,
		Format: opts.Config.LogFormat,
	})
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g. pebble) to our logger.
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(opts.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := opts.HTTPAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", opts.Config.Port)
	}

	procLogger.Info("Starting smq server",
		logpkg.Str("http", addr),
		logpkg.Str("storage", string(opts.Config.Storage)),
		logpkg.Int("max_message_size", opts.Config.MaxMessageSize),
		logpkg.Str("level", opts.Config.LogLevel),
		logpkg.Str("format", opts.Config.LogFormat),
	)

	hsrv := httpserver.New(rt, procLogger)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, addr) }()

	select {
	case <-sctx.Done():
		hsrv.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
