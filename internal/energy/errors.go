package energy

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryUnavailable is returned when the states table cannot be read.
	ErrDirectoryUnavailable = errors.New("state directory unavailable")

	// ErrMalformedRecord wraps the reason a single data point was skipped.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownFamily is returned for a family with no configured commodity types.
	ErrUnknownFamily = errors.New("unknown commodity family")
)

// TransportFailure is the only error a SourceClient returns. It is recovered
// by the pipeline and contributes zero records for its pair.
type TransportFailure struct {
	StateCode string
	Type      string
	Cause     error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Type, e.StateCode, e.Cause)
}

func (e *TransportFailure) Unwrap() error {
	return e.Cause
}

// StorageFault is a run-level failure raised while reconciling a batch.
// The batch transaction has been rolled back when it is returned.
type StorageFault struct {
	Op    string
	Cause error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Cause)
}

func (e *StorageFault) Unwrap() error {
	return e.Cause
}
