package errors

import "fmt"

var (
	ErrRoomFull        = fmt.Errorf("room already has two participants")
	ErrNameConflict    = fmt.Errorf("username already taken by another participant")
	ErrNotInRoom       = fmt.Errorf("no active room session")
	ErrInvalidBit      = fmt.Errorf("bit must be 0 or 1")
	ErrInvalidUsername = fmt.Errorf("invalid username")
	ErrWorkerPanic     = fmt.Errorf("worker panic")

	ErrSessionSuperseded = fmt.Errorf("session superseded by a newer join")
	ErrNoTeleporter      = fmt.Errorf("no teleporter configured")
)

// TransportError wraps a network or storage failure. It is always retryable:
// the scheduler logs it and retries on the next tick, it never changes state.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}
