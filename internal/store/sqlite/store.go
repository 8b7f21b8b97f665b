// Package sqlite implements the atdir persistence layer backed by SQLite
// databases under the base directory: the principal directory store of
// registered handles and the separately rebuilt reserved-word filter.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atdir/atdir/internal/auth"
	"github.com/atdir/atdir/internal/identity"
	"github.com/atdir/atdir/internal/netutil"
	"github.com/atdir/atdir/internal/validate"
)

// Store wraps the directory database for one serving domain.
type Store struct {
	db     *sql.DB
	domain string

	tokenLength int

	lookupDIDStmt    *sql.Stmt
	isRegisteredStmt *sql.Stmt
}

const defaultMaxOpenConns = 10
const defaultMaxIdleConns = 10

const lookupDIDQuery = `SELECT did FROM users WHERE handle = ?`
const isRegisteredQuery = `SELECT 1 FROM users WHERE handle = ? LIMIT 1`
const insertRecordQuery = `
INSERT INTO users (handle, did, label, domain, token, email, locked, creation_time)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)`

// Options controls connection pool sizing and token issuance.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	TokenLength  int
}

// Open creates or opens the directory database at path for the given
// serving domain, runs migrations, and enables WAL mode.
func Open(path, domain string, opts Options) (*Store, error) {
	db, err := openDatabase(path, opts.MaxOpenConns, opts.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:          db,
		domain:      netutil.NormalizeHost(domain),
		tokenLength: opts.TokenLength,
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepareStatements(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// openDatabase is shared by the directory store and the reserved-word
// filter: per-connection PRAGMAs ride on the DSN so every pooled
// connection gets them, WAL and busy_timeout are set database-wide.
func openDatabase(path string, maxOpen, maxIdle int) (*sql.DB, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite setup (%s): %w", pragma, err)
		}
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	stmtErr := s.closePreparedStatements()
	return errors.Join(stmtErr, s.db.Close())
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error
	if s.lookupDIDStmt, err = s.db.PrepareContext(ctx, lookupDIDQuery); err != nil {
		return fmt.Errorf("prepare did lookup query: %w", err)
	}
	if s.isRegisteredStmt, err = s.db.PrepareContext(ctx, isRegisteredQuery); err != nil {
		closeErr := s.closePreparedStatements()
		return errors.Join(fmt.Errorf("prepare registration query: %w", err), closeErr)
	}
	return nil
}

func (s *Store) closePreparedStatements() error {
	var err error
	err = errors.Join(err, closeStmt(&s.lookupDIDStmt))
	err = errors.Join(err, closeStmt(&s.isRegisteredStmt))
	return err
}

func closeStmt(stmt **sql.Stmt) error {
	if stmt == nil || *stmt == nil {
		return nil
	}
	err := (*stmt).Close()
	*stmt = nil
	return err
}

// migrate creates the users table and its indexes if missing. The three
// UNIQUE constraints are what makes record creation atomic under
// concurrent registrations.
func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
	handle TEXT PRIMARY KEY,
	did TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL UNIQUE,
	domain TEXT NOT NULL,
	token TEXT NOT NULL,
	email TEXT NOT NULL,
	locked INTEGER NOT NULL DEFAULT 0,
	notes TEXT NULL,
	creation_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_users_did ON users(did);
CREATE INDEX IF NOT EXISTS idx_users_label ON users(label);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// LookupDID returns the DID registered for handle. A stored DID that no
// longer satisfies the did:plc grammar is reported as
// [identity.ErrCorruptRecord]; the row is left in place for operator
// cleanup and callers should present it as not found.
func (s *Store) LookupDID(ctx context.Context, handle string) (string, error) {
	handle = netutil.NormalizeHost(handle)
	var did string
	err := s.lookupDIDStmt.QueryRowContext(ctx, handle).Scan(&did)
	if errors.Is(err, sql.ErrNoRows) {
		return "", identity.ErrNotFound
	}
	if err != nil {
		return "", &identity.RecordError{Handle: handle, Op: "lookup", Err: err}
	}
	if !validate.PLC(did) {
		return "", &identity.RecordError{Handle: handle, Op: "lookup", Err: identity.ErrCorruptRecord}
	}
	return did, nil
}

// IsRegistered reports whether handle has an active registration.
func (s *Store) IsRegistered(ctx context.Context, handle string) (bool, error) {
	handle = netutil.NormalizeHost(handle)
	var one int
	err := s.isRegisteredStmt.QueryRowContext(ctx, handle).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateRecord runs the full validation chain, issues a management token,
// and inserts the record in a single statement. Uniqueness of handle, did,
// and label is enforced by the insert itself, not by a prior existence
// check, so two racing registrations resolve to one success and one
// [identity.ErrDuplicate]. On any failure nothing is written and no token
// is disclosed.
func (s *Store) CreateRecord(ctx context.Context, in identity.CreateInput) (identity.Record, error) {
	rec, err := s.buildRecord(in)
	if err != nil {
		return identity.Record{}, err
	}

	token, err := auth.GenerateToken(s.tokenLength)
	if err != nil {
		return identity.Record{}, &identity.RecordError{Handle: rec.Handle, Op: "create", Err: err}
	}
	rec.Token = token
	rec.CreationTime = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, insertRecordQuery,
		rec.Handle, rec.DID, rec.Label, rec.Domain, rec.Token, rec.Email, rec.CreationTime)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.Record{}, &identity.RecordError{Handle: rec.Handle, Op: "create", Err: identity.ErrDuplicate}
		}
		return identity.Record{}, &identity.RecordError{Handle: rec.Handle, Op: "create", Err: err}
	}
	return rec, nil
}

// buildRecord validates the input in the fixed order empty check, label
// grammar, handle grammar, did grammar, and normalizes the fields.
func (s *Store) buildRecord(in identity.CreateInput) (identity.Record, error) {
	handle := netutil.NormalizeHost(in.Handle)
	label := strings.ToLower(strings.TrimSpace(in.Label))
	did := strings.ToLower(strings.TrimSpace(in.DID))
	email := strings.TrimSpace(in.Email)

	if handle == "" || label == "" || did == "" {
		return identity.Record{}, identity.ErrEmptyData
	}
	if !validate.Label(label) {
		return identity.Record{}, identity.ErrInvalidLabel
	}
	if !validate.Handle(handle) {
		return identity.Record{}, identity.ErrInvalidHandle
	}
	if !validate.PLC(did) {
		return identity.Record{}, identity.ErrInvalidDID
	}
	if email == "" {
		email = identity.NoEmailProvided
	}

	return identity.Record{
		Handle: handle,
		DID:    did,
		Label:  label,
		Domain: s.domain,
		Email:  email,
	}, nil
}

// ListRecords returns every registered record ordered by creation time,
// for operator inspection.
func (s *Store) ListRecords(ctx context.Context) ([]identity.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT handle, did, label, domain, token, email, locked, COALESCE(notes, ''), creation_time
FROM users
ORDER BY creation_time, handle`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []identity.Record
	for rows.Next() {
		var rec identity.Record
		var locked int
		if err := rows.Scan(&rec.Handle, &rec.DID, &rec.Label, &rec.Domain, &rec.Token, &rec.Email, &locked, &rec.Notes, &rec.CreationTime); err != nil {
			return nil, err
		}
		rec.Locked = locked != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
