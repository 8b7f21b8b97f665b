package auth

import (
	"strings"
	"testing"
)

func TestGenerateTokenLength(t *testing.T) {
	for _, n := range []int{1, 10, 12, 64} {
		token, err := GenerateToken(n)
		if err != nil {
			t.Fatal(err)
		}
		if len(token) != n {
			t.Fatalf("GenerateToken(%d): got length %d", n, len(token))
		}
	}
}

func TestGenerateTokenDefaultLength(t *testing.T) {
	token, err := GenerateToken(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(token) != DefaultTokenLength {
		t.Fatalf("expected default length %d, got %d", DefaultTokenLength, len(token))
	}
}

func TestGenerateTokenAlphabet(t *testing.T) {
	token, err := GenerateToken(256)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range token {
		if !strings.ContainsRune(tokenAlphabet, r) {
			t.Fatalf("token contains %q outside the alphabet", r)
		}
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		token, err := GenerateToken(10)
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = struct{}{}
	}
}
