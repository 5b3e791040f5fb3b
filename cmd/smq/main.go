package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/smq/internal/cmd/client"
	serverrun "github.com/rzbill/smq/internal/cmd/server"
	cfgpkg "github.com/rzbill/smq/internal/config"
	logpkg "github.com/rzbill/smq/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// initialize logger for CLI
	// Respect SMQ_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("SMQ_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "smq",
		Short: "smq message queue CLI",
		Long:  "smq is a single-binary message queue. This CLI manages the server and basic queue operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the smq server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, _ := cmd.Flags().GetString("http")
			port, _ := cmd.Flags().GetInt("port")
			storage, _ := cmd.Flags().GetString("storage")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			redisAddr, _ := cmd.Flags().GetString("redis-addr")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			maxSize, _ := cmd.Flags().GetString("max-message-size")
			leaseMs, _ := cmd.Flags().GetInt("lease-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg := cfgpkg.Default()
			cfgpkg.FromEnv(&cfg)
			if port > 0 {
				cfg.Port = port
			}
			if storage != "" {
				cfg.Storage = cfgpkg.StorageKind(storage)
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if redisAddr != "" {
				cfg.RedisAddr = redisAddr
			}
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}
			if fsyncIntervalMs > 0 {
				cfg.FsyncInterval = time.Duration(fsyncIntervalMs) * time.Millisecond
			}
			if maxSize != "" {
				n, err := cfgpkg.ParseSize(maxSize)
				if err != nil {
					return fmt.Errorf("invalid --max-message-size: %w", err)
				}
				cfg.MaxMessageSize = n
			}
			if leaseMs >= 0 {
				cfg.LeaseDuration = time.Duration(leaseMs) * time.Millisecond
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				HTTPAddr: httpAddr,
				Config:   cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("http", "", "HTTP listen address (overrides --port)")
	serverStartCmd.Flags().Int("port", 0, "HTTP listen port (default 1337 or SMQ_PORT)")
	serverStartCmd.Flags().String("storage", "", "Storage engine: memory|pebble|redis")
	serverStartCmd.Flags().String("data-dir", "", "Data directory for pebble storage (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("redis-addr", "", "Redis address for redis storage")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode for pebble storage: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms (default 5)")
	serverStartCmd.Flags().String("max-message-size", "", "Maximum message body size: bytes or <n>K (default 64K)")
	serverStartCmd.Flags().Int("lease-ms", -1, "Lease duration in ms before in-flight messages become reclaimable (0 disables)")
	serverStartCmd.Flags().String("log-level", os.Getenv("SMQ_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("SMQ_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// queue commands (client over HTTP)
	queueCmd := clientcmd.NewQueueCommand(apiURL)
	rootCmd.AddCommand(queueCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("SMQ_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:1337"
}
