package identity

import (
	"errors"
	"testing"
)

func TestRecordErrorMessage(t *testing.T) {
	t.Parallel()

	err := &RecordError{Handle: "alice.example.com", Op: "create", Err: ErrDuplicate}
	want := "record alice.example.com: create: record already exists"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRecordErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &RecordError{Handle: "bob.example.com", Op: "lookup", Err: ErrNotFound}
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected errors.Is to match ErrNotFound")
	}
}

func TestRecordErrorWithoutHandle(t *testing.T) {
	t.Parallel()

	err := &RecordError{Op: "lookup", Err: ErrCorruptRecord}
	want := "lookup: stored record is corrupt"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
