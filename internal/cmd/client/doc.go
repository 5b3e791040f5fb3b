// Package client provides the `smq` command-line client.
//
// The CLI talks to the smq HTTP endpoints to perform common queue
// operations from a terminal. It is primarily intended for developers
// and operators.
//
// Installation
//
//	go install github.com/rzbill/smq/cmd/smq@latest
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it is
// read from the SMQ_HTTP environment variable and defaults to
// http://127.0.0.1:1337.
//
// Usage
//
//	smq queue add '{"hello":"world"}'
//	smq queue get --count 5
//	smq queue peek --count 10 --filter 'retry_count > 0'
//	smq queue retry 0198f3a2-7c1d-7e4b-9c3f-2a6d8e1b5f70
//	smq queue delete 0198f3a2-7c1d-7e4b-9c3f-2a6d8e1b5f70
//	smq queue stats
//	smq queue purge --confirm
//
// Notes
//
//   - get leases messages: they stay in-flight until deleted or retried.
//   - peek is read-only; the optional --filter is a CEL expression
//     evaluated server-side over body, retry_count, size, ts_ms, json,
//     and now_ms.
//   - purge refuses to run without --confirm.
package client
