package validate

import (
	"strings"
	"testing"
)

func TestLabel(t *testing.T) {
	t.Parallel()

	valid := []string{"a", "alice", "a1", "1a", "a-b", "abc-def-123", strings.Repeat("a", 63)}
	for _, s := range valid {
		if !Label(s) {
			t.Errorf("Label(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "-alice", "alice-", "al ice", "al.ice", "al_ice", strings.Repeat("a", 64)}
	for _, s := range invalid {
		if Label(s) {
			t.Errorf("Label(%q) = true, want false", s)
		}
	}
}

func TestHandle(t *testing.T) {
	t.Parallel()

	valid := []string{"example.com", "alice.example.com", "a-b.example.co", "alice.x"}
	for _, s := range valid {
		if !Handle(s) {
			t.Errorf("Handle(%q) = false, want true", s)
		}
	}

	// The final segment must be alphabetic-led.
	invalid := []string{"", "alice.", ".example.com", "alice..com", "alice.123", "alice.-com", "-alice.example.com"}
	for _, s := range invalid {
		if Handle(s) {
			t.Errorf("Handle(%q) = true, want false", s)
		}
	}
}

func TestDID(t *testing.T) {
	t.Parallel()

	valid := []string{
		"did:plc:7wm5b6dzk54ukznrxdlpp23f",
		"did:web:example.com",
		"did:key:zQ3shunBKsXixLxKtC5qeSG9E4J5RkGN57im31pcTzbNQnm5w",
	}
	for _, s := range valid {
		if !DID(s) {
			t.Errorf("DID(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "did:", "did:PLC:abc", "plc:abc", "did:plc:", "not-a-did"}
	for _, s := range invalid {
		if DID(s) {
			t.Errorf("DID(%q) = true, want false", s)
		}
	}
}

func TestPLC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"did:plc:7wm5b6dzk54ukznrxdlpp23f", true},
		{"did:plc:" + strings.Repeat("a", 24), true},
		{"DID:PLC:7WM5B6DZK54UKZNRXDLPP23F", true}, // case-insensitive input
		{"did:plc:" + strings.Repeat("a", 23), false},
		{"did:plc:" + strings.Repeat("a", 25), false},
		{"did:plc:" + strings.Repeat("1", 24), false}, // 0/1 not in base32
		{"did:web:example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := PLC(tt.in); got != tt.want {
			t.Errorf("PLC(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if s := "did:plc:" + strings.Repeat("a", 24); len(s) != PLCLength {
		t.Fatalf("PLCLength constant out of sync: %d", len(s))
	}
}

func TestExtractPLC(t *testing.T) {
	t.Parallel()

	did, ok := ExtractPLC("my identifier is did:plc:7wm5b6dzk54ukznrxdlpp23f, thanks")
	if !ok || did != "did:plc:7wm5b6dzk54ukznrxdlpp23f" {
		t.Fatalf("ExtractPLC: got %q, %v", did, ok)
	}

	// First match wins.
	did, ok = ExtractPLC("did:plc:aaaaaaaaaaaaaaaaaaaaaaaa did:plc:bbbbbbbbbbbbbbbbbbbbbbbb")
	if !ok || did != "did:plc:aaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("ExtractPLC: got %q, %v", did, ok)
	}

	if _, ok := ExtractPLC("no identifier here"); ok {
		t.Fatal("ExtractPLC matched text without a did")
	}
}
