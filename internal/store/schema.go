package store

import (
	"database/sql"
	"fmt"

	"claudex/internal/logging"
)

// CurrentSchemaVersion documents the schema history:
// v1: sessions, observations, reasoning_chains, consensus_decisions,
//     pressure_scores, checkpoint_state, audit_log base tables.
// v2: FTS5 virtual table + sync triggers over observations(title, content).
// v3: FTS5 virtual tables + sync triggers over reasoning_chains(title,
//     reasoning) and consensus_decisions(title, description), rounding
//     out the three FTS tables this store maintains.
const CurrentSchemaVersion = 3

const baseSchema = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	scope TEXT NOT NULL,
	cwd TEXT NOT NULL,
	started_at_epoch INTEGER NOT NULL,
	ended_at_epoch INTEGER,
	status TEXT NOT NULL,
	observation_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	project TEXT,
	timestamp_epoch_ms INTEGER NOT NULL,
	tool_name TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	files_read TEXT,
	files_modified TEXT,
	importance INTEGER NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_epoch INTEGER,
	deleted_at_epoch INTEGER
);
CREATE INDEX IF NOT EXISTS idx_observations_project ON observations(project);
CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(session_id);
CREATE INDEX IF NOT EXISTS idx_observations_deleted ON observations(deleted_at_epoch);

CREATE TABLE IF NOT EXISTS reasoning_chains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	project TEXT,
	timestamp_epoch_ms INTEGER NOT NULL,
	trigger TEXT NOT NULL,
	title TEXT NOT NULL,
	reasoning TEXT NOT NULL,
	importance INTEGER NOT NULL,
	decisions TEXT,
	files_involved TEXT
);
CREATE INDEX IF NOT EXISTS idx_reasoning_project ON reasoning_chains(project);
CREATE INDEX IF NOT EXISTS idx_reasoning_session ON reasoning_chains(session_id);

CREATE TABLE IF NOT EXISTS consensus_decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	project TEXT,
	timestamp_epoch_ms INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	positions TEXT,
	verdict TEXT,
	tags TEXT,
	files_affected TEXT
);
CREATE INDEX IF NOT EXISTS idx_consensus_project ON consensus_decisions(project);

CREATE TABLE IF NOT EXISTS pressure_scores (
	file_path TEXT NOT NULL,
	project TEXT NOT NULL,
	raw_pressure REAL NOT NULL,
	temperature TEXT NOT NULL,
	decay_rate REAL NOT NULL,
	last_accessed_epoch INTEGER NOT NULL,
	last_decay_epoch INTEGER,
	PRIMARY KEY (file_path, project)
);
CREATE INDEX IF NOT EXISTS idx_pressure_project ON pressure_scores(project);
CREATE INDEX IF NOT EXISTS idx_pressure_temperature ON pressure_scores(temperature);

CREATE TABLE IF NOT EXISTS checkpoint_state (
	session_id TEXT PRIMARY KEY,
	active_files TEXT,
	last_epoch INTEGER NOT NULL,
	boost_applied_at INTEGER,
	boost_turn_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_ms INTEGER NOT NULL,
	operation TEXT NOT NULL,
	detail TEXT,
	err TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp_ms);
`

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
	title, content, content='observations', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
	INSERT INTO observations_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS observations_au AFTER UPDATE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
	INSERT INTO observations_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
`

const ftsV3Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS reasoning_fts USING fts5(
	title, reasoning, content='reasoning_chains', content_rowid='id'
);
CREATE TRIGGER IF NOT EXISTS reasoning_ai AFTER INSERT ON reasoning_chains BEGIN
	INSERT INTO reasoning_fts(rowid, title, reasoning) VALUES (new.id, new.title, new.reasoning);
END;
CREATE TRIGGER IF NOT EXISTS reasoning_ad AFTER DELETE ON reasoning_chains BEGIN
	INSERT INTO reasoning_fts(reasoning_fts, rowid, title, reasoning) VALUES ('delete', old.id, old.title, old.reasoning);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS consensus_fts USING fts5(
	title, description, content='consensus_decisions', content_rowid='id'
);
CREATE TRIGGER IF NOT EXISTS consensus_ai AFTER INSERT ON consensus_decisions BEGIN
	INSERT INTO consensus_fts(rowid, title, description) VALUES (new.id, new.title, new.description);
END;
CREATE TRIGGER IF NOT EXISTS consensus_ad AFTER DELETE ON consensus_decisions BEGIN
	INSERT INTO consensus_fts(consensus_fts, rowid, title, description) VALUES ('delete', old.id, old.title, old.description);
END;
`

// initialize applies the base schema and, per migration step, the FTS5
// virtual table and its sync triggers. Each step is idempotent and
// guarded by hasVersion so re-running initialize on an already-current
// database is a cheap no-op.
func initialize(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "initialize")
	defer timer.Stop()

	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}
	if err := recordVersion(db, 1); err != nil {
		return err
	}

	if !hasVersion(db, 2) {
		if _, err := db.Exec(ftsSchema); err != nil {
			return fmt.Errorf("apply fts schema: %w", err)
		}
		if err := recordVersion(db, 2); err != nil {
			return err
		}
	}

	if !hasVersion(db, 3) {
		if _, err := db.Exec(ftsV3Schema); err != nil {
			return fmt.Errorf("apply fts v3 schema: %w", err)
		}
		if err := recordVersion(db, 3); err != nil {
			return err
		}
	}

	return nil
}

func hasVersion(db *sql.DB, version int) bool {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, version).Scan(&count)
	return err == nil && count > 0
}

func recordVersion(db *sql.DB, version int) error {
	if hasVersion(db, version) {
		return nil
	}
	_, err := db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (?, strftime('%s','now')*1000)`, version)
	if err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return nil
}
