// Package log provides structured logging for smq components.
//
// The Logger interface carries leveled methods with typed Fields. A
// BaseLogger pairs a Formatter (text or JSON) with one or more Outputs.
//
// Usage:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	logger = logger.With(log.Component("queue"))
//	logger.Info("message leased", log.Int("count", 3))
//
// ApplyConfig builds a logger from the process configuration:
//
//	logger, err := log.ApplyConfig(&log.Config{Level: "debug", Format: "json"})
package log
