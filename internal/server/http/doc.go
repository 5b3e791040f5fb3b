// Package httpserver provides the REST gateway for the message queue:
// JSON endpoints for add/get/delete/purge/retry/peek plus health, stats,
// and prometheus metrics.
//
// Example:
//
//	rt, _ := runtime.Open(config.Default())
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":1337")
package httpserver
