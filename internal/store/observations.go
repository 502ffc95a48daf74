package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	"claudex/internal/logging"
	"claudex/internal/observation"
)

func encodePaths(paths []string) sql.NullString {
	if len(paths) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func decodePaths(n sql.NullString) []string {
	if !n.Valid || n.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(n.String), &out); err != nil {
		return nil
	}
	return out
}

// StoreObservation inserts an observation row. Returns -1 on failure
// (the failure sentinel), never panics.
func (s *Store) StoreObservation(obs observation.Observation, project *string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO observations
		 (session_id, project, timestamp_epoch_ms, tool_name, category, title, content, files_read, files_modified, importance, access_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		obs.SessionID, nullableString(project), obs.TimestampEpochMs, obs.ToolName, string(obs.Category),
		obs.Title, obs.Content, encodePaths(obs.FilesRead), encodePaths(obs.FilesModified), obs.Importance,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("StoreObservation failed: %v", err)
		logAuditErr(s, "StoreObservation", obs.Title, err)
		return -1
	}

	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}

	if _, err := s.db.Exec(`UPDATE sessions SET observation_count = observation_count + 1 WHERE session_id = ?`, obs.SessionID); err != nil {
		logging.Get(logging.CategoryStore).Warn("observation_count increment failed: %v", err)
	}
	return id
}

const observationColumns = `id, session_id, project, timestamp_epoch_ms, tool_name, category, title, content,
	files_read, files_modified, importance, access_count, last_accessed_epoch, deleted_at_epoch`

func scanObservation(rows *sql.Rows) (ObservationRow, error) {
	var r ObservationRow
	var project sql.NullString
	var filesRead, filesModified sql.NullString
	var lastAccessed, deletedAt sql.NullInt64
	var category string

	err := rows.Scan(&r.ID, &r.SessionID, &project, &r.TimestampEpochMs, &r.ToolName, &category, &r.Title, &r.Content,
		&filesRead, &filesModified, &r.Importance, &r.AccessCount, &lastAccessed, &deletedAt)
	if err != nil {
		return r, err
	}
	r.Category = observation.Category(category)
	r.Project = ptrFromNullString(project)
	r.FilesRead = decodePaths(filesRead)
	r.FilesModified = decodePaths(filesModified)
	r.LastAccessedEpoch = ptrFromNullInt64(lastAccessed)
	r.DeletedAtEpoch = ptrFromNullInt64(deletedAt)
	return r, nil
}

// GetRecentObservations returns up to limit non-deleted observations
// newest-first, optionally scoped to project ("" = global: project IS NULL).
func (s *Store) GetRecentObservations(limit int, project string) []ObservationRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + observationColumns + ` FROM observations WHERE deleted_at_epoch IS NULL`
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
		logging.Get(logging.CategoryStore).Warn("GetRecentObservations failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		r, err := scanObservation(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetObservationsBySession returns all non-deleted observations for a session.
func (s *Store) GetObservationsBySession(sessionID string) []ObservationRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT `+observationColumns+` FROM observations WHERE session_id = ? AND deleted_at_epoch IS NULL ORDER BY timestamp_epoch_ms ASC`,
		sessionID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("GetObservationsBySession failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		r, err := scanObservation(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SearchOptions narrows SearchObservations.
type SearchOptions struct {
	Project      string
	Limit        int
	MinImportance int
}

// SearchObservations runs an FTS5 MATCH query over (title, content),
// scoped to a project, returning non-deleted rows ranked by FTS bm25.
func (s *Store) SearchObservations(query string, opts SearchOptions) []ObservationRow {
	return s.search(query, opts, true)
}

// SearchAll is SearchObservations without project scoping.
func (s *Store) SearchAll(query string, opts SearchOptions) []ObservationRow {
	opts.Project = ""
	return s.search(query, opts, false)
}

func (s *Store) search(query string, opts SearchOptions, scoped bool) []ObservationRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := `SELECT ` + prefixed("o.", observationColumns) + `
		FROM observations_fts f
		JOIN observations o ON o.id = f.rowid
		WHERE observations_fts MATCH ? AND o.deleted_at_epoch IS NULL AND o.importance >= ?`
	args := []interface{}{ftsQuery(query), opts.MinImportance}

	if scoped {
		if opts.Project != "" {
			sqlQuery += ` AND o.project = ?`
			args = append(args, opts.Project)
		} else {
			sqlQuery += ` AND o.project IS NULL`
		}
	}
	sqlQuery += ` ORDER BY bm25(observations_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("search failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		r, err := scanObservation(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// ftsQuery quotes the raw query as an FTS5 phrase to avoid the user's
// input being parsed as FTS operator syntax (AND/OR/NOT/NEAR, column
// filters, "^").
func ftsQuery(q string) string {
	escaped := strings.ReplaceAll(q, `"`, `""`)
	return `"` + escaped + `"`
}

// TouchObservation bumps access_count and last_accessed_epoch for a row
// retrieved by assembly or search.
func (s *Store) TouchObservation(id int64, nowEpochMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`UPDATE observations SET access_count = access_count + 1, last_accessed_epoch = ? WHERE id = ?`,
		nowEpochMs, id,
	); err != nil {
		logging.Get(logging.CategoryStore).Warn("TouchObservation failed: %v", err)
	}
}

// SoftDelete marks a batch of observation ids deleted without removing
// the rows, used by the Selection-Pressure Pruner.
func (s *Store) SoftDelete(ids []int64, nowEpochMs int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, err := s.db.Exec(`UPDATE observations SET deleted_at_epoch = ? WHERE id = ? AND deleted_at_epoch IS NULL`, nowEpochMs, id); err != nil {
			logging.Get(logging.CategoryStore).Warn("SoftDelete failed for id=%d: %v", id, err)
			continue
		}
		deleted++
	}
	return deleted
}

// NonDeletedCount returns the number of observations not soft-deleted,
// used to trigger the pruner's >1000-row threshold.
func (s *Store) NonDeletedCount(project string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT COUNT(*) FROM observations WHERE deleted_at_epoch IS NULL`
	args := []interface{}{}
	if project != "" {
		query += ` AND project = ?`
		args = append(args, project)
	}
	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		logging.Get(logging.CategoryStore).Warn("NonDeletedCount failed: %v", err)
		return 0
	}
	return count
}
