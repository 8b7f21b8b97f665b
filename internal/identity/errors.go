package identity

import (
	"errors"
	"fmt"
)

// Sentinel errors for well-known failure conditions that cross package
// boundaries. Callers should use [errors.Is] to match these.
var (
	// ErrInvalidDID means the supplied DID (or the DID recovered by the
	// resolver) does not satisfy the did:plc grammar.
	ErrInvalidDID = errors.New("invalid did")

	// ErrInvalidLabel means the subdomain label is not a DNS-safe segment.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrInvalidHandle means the full handle is not a well-formed host name
	// under the serving domain.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrMissingData means a required field was never supplied.
	ErrMissingData = errors.New("required data not provided")

	// ErrEmptyData means a required field was supplied but blank.
	ErrEmptyData = errors.New("empty data")

	// ErrDuplicate means the handle, label, or DID collides with an
	// existing record. The first record is left untouched.
	ErrDuplicate = errors.New("record already exists")

	// ErrNotFound means no record exists for the requested handle.
	ErrNotFound = errors.New("record not found")

	// ErrCorruptRecord means a stored record failed validation on read.
	// The row is kept for operator cleanup and reported as not found.
	ErrCorruptRecord = errors.New("stored record is corrupt")
)

// RecordError wraps an underlying error with handle context.
type RecordError struct {
	Handle string
	Op     string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("record %s: %s: %v", e.Handle, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
