package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConsumed is yielded when a result sequence is ranged over a second time.
	ErrConsumed = errors.New("result already consumed")
)

// RemoteError is a failure reported by the data service. Error() returns the
// service's message unchanged so it can be shown to the user verbatim.
type RemoteError struct {
	Op    string
	Table string
	Err   error
}

func (e *RemoteError) Error() string { return e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }

// Describe is the log-friendly form including the operation and table.
func (e *RemoteError) Describe() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}
