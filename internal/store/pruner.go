package store

import "claudex/internal/logging"

// CoOccurrenceCount returns the number of other non-deleted observations
// that share at least one modified file with id, computed as a SQL
// self-join over json_each(files_modified) rather than pulling every
// row into memory for an all-pairs comparison.
func (s *Store) CoOccurrenceCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT o2.id)
		FROM observations o1, json_each(COALESCE(o1.files_modified, '[]')) f1
		JOIN observations o2 ON o2.id != o1.id AND o2.deleted_at_epoch IS NULL
		JOIN json_each(COALESCE(o2.files_modified, '[]')) f2 ON f2.value = f1.value
		WHERE o1.id = ?
	`, id).Scan(&count)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("CoOccurrenceCount failed for id=%d: %v", id, err)
		return 0
	}
	return count
}

// PrunableObservation holds one non-deleted observation's id,
// importance, access_count, last_accessed_epoch (falling back to
// timestamp_epoch_ms when unset), needed to compute EI without loading
// full row bodies.
type PrunableObservation struct {
	ID                int64
	Importance        int
	AccessCount       int
	LastAccessedEpoch int64
}

// ListPrunable returns the minimal projection the pruner needs to score
// every candidate row, scoped to project ("" = all projects).
func (s *Store) ListPrunable(project string) []PrunableObservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, importance, access_count, COALESCE(last_accessed_epoch, timestamp_epoch_ms)
		FROM observations WHERE deleted_at_epoch IS NULL`
	args := []interface{}{}
	if project != "" {
		query += ` AND project = ?`
		args = append(args, project)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("ListPrunable failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []PrunableObservation
	for rows.Next() {
		var p PrunableObservation
		if err := rows.Scan(&p.ID, &p.Importance, &p.AccessCount, &p.LastAccessedEpoch); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
