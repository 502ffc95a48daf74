package store

import (
	"database/sql"

	"claudex/internal/logging"
)

// CreateSession inserts a new active session row. Sentinel on failure:
// never panics, logs and returns the error; callers treat a returned
// error as "no session tracked this turn" and proceed best-effort.
func (s *Store) CreateSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, scope, cwd, started_at_epoch, status, observation_count)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT(session_id) DO UPDATE SET status = excluded.status`,
		sess.SessionID, sess.Scope, sess.Cwd, sess.StartedAtEpoch, SessionActive,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("CreateSession failed: %v", err)
		logAuditErr(s, "CreateSession", sess.SessionID, err)
		return err
	}
	return nil
}

// UpdateSessionStatus transitions a session to completed/failed and
// stamps ended_at_epoch.
func (s *Store) UpdateSessionStatus(sessionID string, status SessionStatus, endedAtEpoch int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, ended_at_epoch = ? WHERE session_id = ?`,
		status, endedAtEpoch, sessionID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("UpdateSessionStatus failed: %v", err)
		logAuditErr(s, "UpdateSessionStatus", sessionID, err)
		return err
	}
	return nil
}

// GetActiveSession returns the active session row for sessionID, or nil
// if none exists (sentinel-on-failure, never panics).
func (s *Store) GetActiveSession(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess Session
	var ended sql.NullInt64
	err := s.db.QueryRow(
		`SELECT session_id, scope, cwd, started_at_epoch, ended_at_epoch, status, observation_count
		 FROM sessions WHERE session_id = ? AND status = ?`,
		sessionID, SessionActive,
	).Scan(&sess.SessionID, &sess.Scope, &sess.Cwd, &sess.StartedAtEpoch, &ended, &sess.Status, &sess.ObservationCount)
	if err != nil {
		if err != sql.ErrNoRows {
			logging.Get(logging.CategoryStore).Warn("GetActiveSession query failed: %v", err)
		}
		return nil
	}
	sess.EndedAtEpoch = ptrFromNullInt64(ended)
	return &sess
}

// OrphanSessions returns session_ids still marked active whose
// started_at_epoch is older than cutoffEpochMs, used by the Recovery
// Pass's stale-session check.
func (s *Store) OrphanSessions(cutoffEpochMs int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT session_id FROM sessions WHERE status = ? AND started_at_epoch < ?`,
		SessionActive, cutoffEpochMs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
