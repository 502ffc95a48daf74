package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"claudex/internal/claudexerr"
	"claudex/internal/logging"
)

// Store is the single-writer SQLite handle every subsystem routes
// through within one hook invocation: one *sql.DB, one process-wide
// mutex, WAL + busy_timeout pragmas.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open creates the parent directory if needed, opens the database with
// modernc.org/sqlite (pure Go — no cgo — chosen over a cgo driver so hook
// invocations stay under the startup-latency budget), and applies schema.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, claudexerr.New(claudexerr.KindFilesystemFailure, "store.Open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, claudexerr.New(claudexerr.KindStoreUnavailable, "store.Open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Warn("pragma failed: %s: %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := initialize(db); err != nil {
		db.Close()
		return nil, claudexerr.New(claudexerr.KindStoreIntegrityFailure, "store.Open", err)
	}
	return s, nil
}

// Close releases the database handle. Safe to call once per Open.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the underlying connection is reachable, used by
// the Recovery Pass's DB-integrity check.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// IntegrityCheck runs SQLite's PRAGMA integrity_check, returning "ok"
// on success or the first reported problem otherwise.
func (s *Store) IntegrityCheck() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return "", claudexerr.New(claudexerr.KindStoreIntegrityFailure, "store.IntegrityCheck", err)
	}
	return result, nil
}

// ftsTables are the three FTS5 virtual tables this store maintains.
var ftsTables = []string{"observations_fts", "reasoning_fts", "consensus_fts"}

// FTSHealthy reports whether every FTS5 virtual table answers its
// built-in integrity-check command without error, used by the Recovery
// Pass's FTS health check.
func (s *Store) FTSHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range ftsTables {
		if _, err := s.db.Exec(fmt.Sprintf(`INSERT INTO %s(%s) VALUES ('integrity-check')`, table, table)); err != nil {
			return false
		}
	}
	return true
}

// RebuildFTS issues the FTS5 'rebuild' command against every virtual
// table, the recovery directive FTSHealthy's caller falls back to when
// a table fails its integrity check.
func (s *Store) RebuildFTS() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range ftsTables {
		if _, err := s.db.Exec(fmt.Sprintf(`INSERT INTO %s(%s) VALUES ('rebuild')`, table, table)); err != nil {
			return claudexerr.New(claudexerr.KindStoreIntegrityFailure, "store.RebuildFTS", err)
		}
	}
	return nil
}

func nullableString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullableInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrFromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func ptrFromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func logAuditErr(s *Store, op string, detail string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	// audit writes are best-effort: a failure here must never mask the
	// original operation's result.
	_, _ = s.db.Exec(
		`INSERT INTO audit_log (timestamp_ms, operation, detail, err) VALUES (strftime('%s','now')*1000, ?, ?, ?)`,
		op, detail, errStr,
	)
}

var errNotFound = fmt.Errorf("not found")
