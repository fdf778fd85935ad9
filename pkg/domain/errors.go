package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a request or event carries no
	// verified identity.
	ErrUnauthorized = errors.New("authentication required")

	// ErrNotFound is returned when a ranking or match does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInQueue and ErrNotInQueue are the queue-layer conflicts
	// surfaced as 409/404 on the REST surface.
	ErrAlreadyInQueue = errors.New("already in queue")
	ErrNotInQueue     = errors.New("not in queue")
)

// NewErrUnauthorized keeps the constructor form used across controllers.
func NewErrUnauthorized() error { return ErrUnauthorized }

// MatchStateError reports an event that arrived for a match in the wrong
// state. It is logged server-side and surfaced to explicit client actions
// as a discrete error event.
type MatchStateError struct {
	MatchID string
	State   string
	Event   string
}

func (e *MatchStateError) Error() string {
	return fmt.Sprintf("match %s: event %q not valid in state %q", e.MatchID, e.Event, e.State)
}

// StorageError wraps a transport failure from the document store. The
// finalization path retries these once; everything else maps to HTTP 500.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError tags err with the failing operation.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
