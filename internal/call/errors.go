package call

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaAcquisition marks a failed local capture acquisition
	// (permission denied, device busy). The attempt is aborted; there
	// is no retry.
	ErrMediaAcquisition = errors.New("media acquisition failed")

	// ErrNegotiation marks a failure applying or producing a session
	// description on the connection resource.
	ErrNegotiation = errors.New("negotiation failed")
)

// CallError wraps a call-attempt failure with the operation that
// produced it. Every failure is scoped to one attempt; none are fatal.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}
