// Package config holds the process configuration for smq: HTTP port,
// message size limit, log settings, and storage engine selection.
//
// Defaults come from Default(); SMQ_* environment variables overlay them
// via FromEnv, and CLI flags overlay both at the command layer. The core
// receives the resulting Config by value; there is no ambient global.
package config
