package livetail

import (
	"errors"
	"fmt"
)

// ErrStopped is the cancellation cause used by Session.Stop. Reads that fail
// because of it are not reported as session errors.
var ErrStopped = errors.New("live tail stopped")

// DecodeError reports a single malformed line. The stream continues.
type DecodeError struct {
	Line int // 1-based line number within the decoding session
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError reports a failed connection or an unusable response. It
// halts the current connection only.
type TransportError struct {
	Op  string // "connect" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
