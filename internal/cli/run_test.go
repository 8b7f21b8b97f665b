package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunUsage(t *testing.T) {
	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit 2 without arguments, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit 0 for help, got %d", code)
	}
	if code := Run([]string{"bogus"}); code != 2 {
		t.Fatalf("expected exit 2 for unknown command, got %d", code)
	}
}

func TestRunInitAndUpdate(t *testing.T) {
	dir := t.TempDir()
	wordList := filepath.Join(dir, "reserved_words.txt")
	if err := os.WriteFile(wordList, []byte("admin\nwww\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := Run([]string{"init", dir}); code != 0 {
		t.Fatalf("init exit code %d", code)
	}
	if code := Run([]string{"update", dir}); code != 0 {
		t.Fatalf("update exit code %d", code)
	}

	if _, err := os.Stat(filepath.Join(dir, "reserved.db")); err != nil {
		t.Fatalf("filter database missing: %v", err)
	}
}

func TestRunInitMissingWordList(t *testing.T) {
	if code := Run([]string{"init", t.TempDir()}); code != 1 {
		t.Fatalf("expected exit 1 without word list, got %d", code)
	}
}

func TestRunInitBadBaseDir(t *testing.T) {
	if code := Run([]string{"init", filepath.Join(t.TempDir(), "missing")}); code != 2 {
		t.Fatalf("expected exit 2 for bad basedir, got %d", code)
	}
}

func TestRunAddAndList(t *testing.T) {
	dir := t.TempDir()

	code := Run([]string{"add", dir, "example.com", "alice", "did:plc:aaaaaaaaaaaaaaaaaaaaaaaa"})
	if code != 0 {
		t.Fatalf("add exit code %d", code)
	}

	// Duplicate registration through the CLI is rejected like any other.
	code = Run([]string{"add", dir, "example.com", "alice", "did:plc:bbbbbbbbbbbbbbbbbbbbbbbb"})
	if code != 1 {
		t.Fatalf("expected exit 1 for duplicate, got %d", code)
	}

	if code := Run([]string{"list", dir, "example.com"}); code != 0 {
		t.Fatalf("list exit code %d", code)
	}
}

func TestRunAddInvalidDID(t *testing.T) {
	dir := t.TempDir()

	if code := Run([]string{"add", dir, "example.com", "bob", "not-a-did"}); code != 1 {
		t.Fatalf("expected exit 1 for invalid did, got %d", code)
	}
}
