package store

import "claudex/internal/logging"

// LogAudit records a non-error audit trail entry. Failed mutations are
// recorded best-effort and inline by the mutating call (see
// logAuditErr); successful CRUD calls write no row. LogAudit is for
// explicit call sites that want to note an operation outside the CRUD
// helpers (flush, recovery).
func (s *Store) LogAudit(operation, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`INSERT INTO audit_log (timestamp_ms, operation, detail, err) VALUES (strftime('%s','now')*1000, ?, ?, '')`,
		operation, detail,
	); err != nil {
		logging.Get(logging.CategoryStore).Warn("LogAudit failed: %v", err)
	}
}

// CleanOldAuditLogs deletes audit_log rows older than cutoffEpochMs,
// returning the number of rows removed.
func (s *Store) CleanOldAuditLogs(cutoffEpochMs int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM audit_log WHERE timestamp_ms < ?`, cutoffEpochMs)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("CleanOldAuditLogs failed: %v", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
