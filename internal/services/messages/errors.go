package messages

import (
	"errors"
	"fmt"
)

// Validation errors are detected before any mutation reaches storage.
var (
	// ErrBodyTooLarge rejects an Add whose body exceeds the configured
	// maximum message size.
	ErrBodyTooLarge = errors.New("message body size is too large")
	// ErrNoIDs rejects a Delete/Retry with an empty id list.
	ErrNoIDs = errors.New("no message ids provided")
)

// InvalidIDError reports the first malformed id in a Delete/Retry request.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid message id: %s", e.ID)
}

// InvalidFilterError reports a peek filter expression that failed to
// compile.
type InvalidFilterError struct {
	Expr string
	Err  error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter expression: %v", e.Err)
}

func (e *InvalidFilterError) Unwrap() error { return e.Err }

// StorageError wraps an opaque failure from the storage engine.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
