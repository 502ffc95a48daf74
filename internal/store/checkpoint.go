package store

import (
	"database/sql"
	"encoding/json"

	"claudex/internal/logging"
)

// UpsertCheckpointState writes the per-session CheckpointState row.
func (s *Store) UpsertCheckpointState(cs CheckpointState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := json.Marshal(cs.ActiveFiles)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO checkpoint_state (session_id, active_files, last_epoch, boost_applied_at, boost_turn_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   active_files = excluded.active_files,
		   last_epoch = excluded.last_epoch,
		   boost_applied_at = excluded.boost_applied_at,
		   boost_turn_count = excluded.boost_turn_count`,
		cs.SessionID, string(files), cs.LastEpoch, nullableInt64(cs.BoostAppliedAt), cs.BoostTurnCount,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("UpsertCheckpointState failed: %v", err)
		logAuditErr(s, "UpsertCheckpointState", cs.SessionID, err)
		return err
	}
	return nil
}

// GetCheckpointState returns the CheckpointState for sessionID, or nil.
func (s *Store) GetCheckpointState(sessionID string) *CheckpointState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cs CheckpointState
	var files string
	var boostAppliedAt sql.NullInt64
	err := s.db.QueryRow(
		`SELECT session_id, active_files, last_epoch, boost_applied_at, boost_turn_count FROM checkpoint_state WHERE session_id = ?`,
		sessionID,
	).Scan(&cs.SessionID, &files, &cs.LastEpoch, &boostAppliedAt, &cs.BoostTurnCount)
	if err != nil {
		if err != sql.ErrNoRows {
			logging.Get(logging.CategoryStore).Warn("GetCheckpointState failed: %v", err)
		}
		return nil
	}
	_ = json.Unmarshal([]byte(files), &cs.ActiveFiles)
	cs.BoostAppliedAt = ptrFromNullInt64(boostAppliedAt)
	return &cs
}

// UpdateBoostState sets boost_applied_at and boost_turn_count for the
// post-compact active-file boost window.
func (s *Store) UpdateBoostState(sessionID string, boostAppliedAt int64, boostTurnCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE checkpoint_state SET boost_applied_at = ?, boost_turn_count = ? WHERE session_id = ?`,
		boostAppliedAt, boostTurnCount, sessionID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("UpdateBoostState failed: %v", err)
		logAuditErr(s, "UpdateBoostState", sessionID, err)
		return err
	}
	return nil
}
