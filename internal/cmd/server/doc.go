// Package serverrun exposes a shared Run entrypoint used by the CLI to
// start the smq runtime and HTTP server, handling lifecycle and shutdown.
//
// Example:
//
//	opts := serverrun.Options{Config: config.FromEnv(config.Default())}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
