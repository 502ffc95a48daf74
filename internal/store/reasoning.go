package store

import (
	"database/sql"

	"claudex/internal/logging"
)

// InsertReasoning appends a ReasoningChain row. Append-only: reasoning
// chains are never updated or soft-deleted once written.
func (s *Store) InsertReasoning(rc ReasoningChain) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO reasoning_chains (session_id, project, timestamp_epoch_ms, trigger, title, reasoning, importance, decisions, files_involved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rc.SessionID, nullableString(rc.Project), rc.TimestampEpochMs, rc.Trigger, rc.Title, rc.Reasoning, rc.Importance,
		encodePaths(rc.Decisions), encodePaths(rc.FilesInvolved),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("InsertReasoning failed: %v", err)
		logAuditErr(s, "InsertReasoning", rc.Title, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

const reasoningColumns = `id, session_id, project, timestamp_epoch_ms, trigger, title, reasoning, importance, decisions, files_involved`

func scanReasoning(rows *sql.Rows) (ReasoningChain, error) {
	var r ReasoningChain
	var project sql.NullString
	var decisions, filesInvolved sql.NullString

	err := rows.Scan(&r.ID, &r.SessionID, &project, &r.TimestampEpochMs, &r.Trigger, &r.Title, &r.Reasoning,
		&r.Importance, &decisions, &filesInvolved)
	if err != nil {
		return r, err
	}
	r.Project = ptrFromNullString(project)
	r.Decisions = decodePaths(decisions)
	r.FilesInvolved = decodePaths(filesInvolved)
	return r, nil
}

// GetRecentReasoning returns up to limit reasoning chains newest-first,
// scoped to project ("" = global).
func (s *Store) GetRecentReasoning(limit int, project string) []ReasoningChain {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + reasoningColumns + ` FROM reasoning_chains WHERE 1=1`
	args := []interface{}{}
	if project != "" {
		query += ` AND project = ?`
		args = append(args, project)
	} else {
		query += ` AND project IS NULL`
	}
	query += ` ORDER BY timestamp_epoch_ms DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("GetRecentReasoning failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ReasoningChain
	for rows.Next() {
		r, err := scanReasoning(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetReasoningBySession returns all reasoning chains for a session.
func (s *Store) GetReasoningBySession(sessionID string) []ReasoningChain {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT `+reasoningColumns+` FROM reasoning_chains WHERE session_id = ? ORDER BY timestamp_epoch_ms ASC`,
		sessionID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("GetReasoningBySession failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ReasoningChain
	for rows.Next() {
		r, err := scanReasoning(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
