package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/atdir/atdir/internal/identity"
)

const didA = "did:plc:aaaaaaaaaaaaaaaaaaaaaaaa"
const didB = "did:plc:bbbbbbbbbbbbbbbbbbbbbbbb"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "example.com.users.db"), "example.com", Options{TokenLength: 10})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateRecordAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.CreateRecord(ctx, identity.CreateInput{
		Handle: "alice.example.com",
		Label:  "alice",
		DID:    didA,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Token) != 10 {
		t.Fatalf("expected a 10-character token, got %q", rec.Token)
	}
	if rec.Email != identity.NoEmailProvided {
		t.Fatalf("expected email sentinel, got %q", rec.Email)
	}
	if rec.Domain != "example.com" {
		t.Fatalf("expected domain example.com, got %q", rec.Domain)
	}

	did, err := store.LookupDID(ctx, "alice.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if did != didA {
		t.Fatalf("round-trip mismatch: got %q, want %q", did, didA)
	}

	registered, err := store.IsRegistered(ctx, "alice.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !registered {
		t.Fatal("expected handle to be registered")
	}
}

func TestCreateRecordNormalizes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.CreateRecord(ctx, identity.CreateInput{
		Handle: "Alice.EXAMPLE.com:8123",
		Label:  " Alice ",
		DID:    strings.ToUpper(didA),
		Email:  "alice@example.net",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Handle != "alice.example.com" || rec.Label != "alice" || rec.DID != didA {
		t.Fatalf("normalization failed: %+v", rec)
	}
	if rec.Email != "alice@example.net" {
		t.Fatalf("expected provided email, got %q", rec.Email)
	}
}

func TestCreateRecordValidationChain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   identity.CreateInput
		want error
	}{
		{"empty did", identity.CreateInput{Handle: "a.example.com", Label: "a"}, identity.ErrEmptyData},
		{"empty label", identity.CreateInput{Handle: "a.example.com", DID: didA}, identity.ErrEmptyData},
		{"bad label", identity.CreateInput{Handle: "a.example.com", Label: "-bad-", DID: didA}, identity.ErrInvalidLabel},
		{"bad handle", identity.CreateInput{Handle: "bad..host", Label: "bad", DID: didA}, identity.ErrInvalidHandle},
		{"bad did", identity.CreateInput{Handle: "bob.example.com", Label: "bob", DID: "not-a-did"}, identity.ErrInvalidDID},
		{"generic did refused", identity.CreateInput{Handle: "bob.example.com", Label: "bob", DID: "did:web:example.com"}, identity.ErrInvalidDID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.CreateRecord(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	// Repeated invalid submissions leave no side effects.
	records, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("invalid input wrote %d rows", len(records))
	}
}

func TestCreateRecordDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateRecord(ctx, identity.CreateInput{Handle: "carol.example.com", Label: "carol", DID: didA})
	if err != nil {
		t.Fatal(err)
	}

	// Second registration with a different DID collides on handle and label.
	if _, err := store.CreateRecord(ctx, identity.CreateInput{Handle: "carol.example.com", Label: "carol", DID: didB}); !errors.Is(err, identity.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Colliding on DID alone is also a duplicate.
	if _, err := store.CreateRecord(ctx, identity.CreateInput{Handle: "dave.example.com", Label: "dave", DID: didA}); !errors.Is(err, identity.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on did collision, got %v", err)
	}

	// The first record is unchanged.
	did, err := store.LookupDID(ctx, "carol.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if did != first.DID {
		t.Fatalf("first record changed: got %q, want %q", did, first.DID)
	}

	records, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(records))
	}
}

func TestCreateRecordConcurrentRace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			did := didA
			if i == 1 {
				did = didB
			}
			_, errs[i] = store.CreateRecord(ctx, identity.CreateInput{
				Handle: "race.example.com",
				Label:  "race",
				DID:    did,
			})
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, identity.ErrDuplicate):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != 1 {
		t.Fatalf("expected one success and one duplicate, got %d/%d", successes, duplicates)
	}
}

func TestLookupDIDNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.LookupDID(context.Background(), "ghost.example.com"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupDIDCorruptRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Corrupt rows can only appear through out-of-band writes; simulate one.
	_, err := store.db.ExecContext(ctx, insertRecordQuery,
		"broken.example.com", "did:web:not-plc.example.com", "broken", "example.com", "tok", "none", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.LookupDID(ctx, "broken.example.com"); !errors.Is(err, identity.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}

	// The corrupt row is kept for operator cleanup.
	records, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected corrupt row to remain, got %d rows", len(records))
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "path", "example.com.users.db")

	store, err := Open(dbPath, "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
}
