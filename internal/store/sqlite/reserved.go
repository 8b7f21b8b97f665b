package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ReservedStore wraps the reserved-word filter database. The word set is
// refreshed wholesale by [ReservedStore.Rebuild] and never mutated by the
// registration path.
type ReservedStore struct {
	db *sql.DB
}

const isReservedQuery = `SELECT 1 FROM reserved_words WHERE word = ? LIMIT 1`

// OpenReserved creates or opens the filter database at path.
func OpenReserved(path string) (*ReservedStore, error) {
	db, err := openDatabase(path, 0, 0)
	if err != nil {
		return nil, err
	}
	s := &ReservedStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *ReservedStore) Close() error {
	return s.db.Close()
}

func (s *ReservedStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, reservedDDL)
	return err
}

const reservedDDL = `
CREATE TABLE IF NOT EXISTS reserved_words (
	word TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reserved_words_word ON reserved_words(word);
`

// Rebuild drops and recreates the filter table, then bulk-loads one word
// per non-blank, non-comment line of the word list at wordListPath. The
// whole reload runs in one transaction, so readers either see the old set
// or the new one. Returns the number of words loaded.
func (s *ReservedStore) Rebuild(ctx context.Context, wordListPath string) (int, error) {
	f, err := os.Open(wordListPath)
	if err != nil {
		return 0, fmt.Errorf("open word list: %w", err)
	}
	defer func() { _ = f.Close() }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS reserved_words`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, reservedDDL); err != nil {
		return 0, err
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO reserved_words (word) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = insert.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		if _, err := insert.ExecContext(ctx, word); err != nil {
			return 0, fmt.Errorf("load word %q: %w", word, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read word list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// IsReserved reports whether label is on the blocklist. Lookup is
// case-insensitive.
func (s *ReservedStore) IsReserved(ctx context.Context, label string) (bool, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	var one int
	err := s.db.QueryRowContext(ctx, isReservedQuery, label).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
