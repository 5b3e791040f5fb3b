// Package messages is the service layer between the HTTP transport and the
// storage engines.
//
// It owns the domain error taxonomy (ErrBodyTooLarge, ErrNoIDs,
// InvalidIDError, InvalidFilterError, StorageError), validates every input
// before any mutation reaches storage, and records prometheus metrics for
// queue operations. Peek accepts an optional CEL expression evaluated over
// {body, retry_count, size, ts_ms, json, now_ms} per previewed message.
package messages
