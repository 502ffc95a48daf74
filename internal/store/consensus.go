package store

import (
	"database/sql"

	"claudex/internal/logging"
)

// InsertConsensus appends a ConsensusDecision row. Append-only.
func (s *Store) InsertConsensus(cd ConsensusDecision) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO consensus_decisions (session_id, project, timestamp_epoch_ms, title, description, status, positions, verdict, tags, files_affected)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cd.SessionID, nullableString(cd.Project), cd.TimestampEpochMs, cd.Title, cd.Description, string(cd.Status),
		cd.Positions, cd.Verdict, encodePaths(cd.Tags), encodePaths(cd.FilesAffected),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("InsertConsensus failed: %v", err)
		logAuditErr(s, "InsertConsensus", cd.Title, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

// GetRecentConsensus returns up to limit consensus decisions
// newest-first, scoped to project ("" = global).
func (s *Store) GetRecentConsensus(limit int, project string) []ConsensusDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, session_id, project, timestamp_epoch_ms, title, description, status, positions, verdict, tags, files_affected
		FROM consensus_decisions WHERE 1=1`
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
		logging.Get(logging.CategoryStore).Warn("GetRecentConsensus failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ConsensusDecision
	for rows.Next() {
		var cd ConsensusDecision
		var project sql.NullString
		var positions, verdict, tags, filesAffected sql.NullString
		var status string
		if err := rows.Scan(&cd.ID, &cd.SessionID, &project, &cd.TimestampEpochMs, &cd.Title, &cd.Description,
			&status, &positions, &verdict, &tags, &filesAffected); err != nil {
			continue
		}
		cd.Project = ptrFromNullString(project)
		cd.Status = ConsensusStatus(status)
		cd.Positions = positions.String
		cd.Verdict = verdict.String
		cd.Tags = decodePaths(tags)
		cd.FilesAffected = decodePaths(filesAffected)
		out = append(out, cd)
	}
	return out
}
