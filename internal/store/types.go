// Package store is the single-writer
// SQLite-backed persistence layer every other component goes through.
// Uses a single *sql.DB with WAL pragmas and mutex-guarded access, plus
// a versioned-migration idiom, built on modernc.org/sqlite (pure Go, no
// cgo) to meet the hook startup-latency budget.
package store

import "claudex/internal/observation"

// GlobalProject is the sentinel used for PressureScore rows that have
// no project scope, since project is NOT NULL in the (file_path,
// project) primary key the upserts conflict on.
const GlobalProject = "__global__"

// Temperature classifies a PressureScore by its raw_pressure band.
type Temperature string

const (
	TemperatureHot  Temperature = "HOT"
	TemperatureWarm Temperature = "WARM"
	TemperatureCold Temperature = "COLD"
)

// ClassifyTemperature applies the 0.7/0.3 raw_pressure thresholds.
func ClassifyTemperature(raw float64) Temperature {
	switch {
	case raw >= 0.7:
		return TemperatureHot
	case raw >= 0.3:
		return TemperatureWarm
	default:
		return TemperatureCold
	}
}

// DecayRateFor returns the decay_rate invariant: 0.01 for COLD rows,
// 0.05 otherwise.
func DecayRateFor(t Temperature) float64 {
	if t == TemperatureCold {
		return 0.01
	}
	return 0.05
}

// ObservationRow is a persisted Observation plus store-owned fields.
type ObservationRow struct {
	ID                int64
	SessionID         string
	Project           *string
	TimestampEpochMs  int64
	ToolName          string
	Category          observation.Category
	Title             string
	Content           string
	FilesRead         []string
	FilesModified     []string
	Importance        int
	AccessCount       int
	LastAccessedEpoch *int64
	DeletedAtEpoch    *int64
}

// PressureScore is the per-file pressure/decay record.
type PressureScore struct {
	FilePath         string
	Project          string
	RawPressure      float64
	Temperature      Temperature
	DecayRate        float64
	LastAccessedEpoch int64
	LastDecayEpoch    *int64
}

// ReasoningChain is a captured reasoning trace for one session turn.
type ReasoningChain struct {
	ID               int64
	SessionID        string
	Project          *string
	TimestampEpochMs int64
	Trigger          string
	Title            string
	Reasoning        string
	Importance       int
	Decisions        []string
	FilesInvolved    []string
}

// ConsensusStatus enumerates ConsensusDecision.status.
type ConsensusStatus string

const (
	ConsensusProposed ConsensusStatus = "proposed"
	ConsensusAgreed    ConsensusStatus = "agreed"
	ConsensusRejected  ConsensusStatus = "rejected"
)

// ConsensusDecision is a recorded agreement/rejection outcome.
type ConsensusDecision struct {
	ID             int64
	SessionID      string
	Project        *string
	TimestampEpochMs int64
	Title          string
	Description    string
	Status         ConsensusStatus
	Positions      string
	Verdict        string
	Tags           []string
	FilesAffected  []string
}

// SessionStatus enumerates Session.status.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is one tracked assistant session.
type Session struct {
	SessionID        string
	Scope            string // "global" or "project:name"
	Cwd              string
	StartedAtEpoch   int64
	EndedAtEpoch     *int64
	Status           SessionStatus
	ObservationCount int
}

// CheckpointState tracks the active-file boost window for a session.
type CheckpointState struct {
	SessionID       string
	ActiveFiles     []string
	LastEpoch       int64
	BoostAppliedAt  *int64
	BoostTurnCount  int
}

// AuditLogEntry is one audit_log row: failed store mutations write one
// (logAuditErr), as do explicit LogAudit calls; successful CRUD calls
// do not.
type AuditLogEntry struct {
	ID          int64
	TimestampMs int64
	Operation   string
	Detail      string
	Err         string
}
