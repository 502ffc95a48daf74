package thread

import (
	"encoding/json"
	"os"
	"path/filepath"

	"claudex/internal/claudexerr"
	"claudex/internal/logging"
)

// nudgeCooldownTurns bounds the nudge rate limit: at most one nudge
// every 5 turns.
const nudgeCooldownTurns = 5

// NudgeState is the file-backed, per-session-directory state the
// Stop-event nudge policy persists across turns.
type NudgeState struct {
	LastNudgeTurn          int `json:"last_nudge_turn"`
	TurnCount              int `json:"turn_count"`
	LastKnownDecisionCount int `json:"last_known_decision_count"`
}

func nudgeStateFile(sessionDir string) string {
	return filepath.Join(sessionDir, "nudge_state.json")
}

// LoadNudgeState reads the per-session nudge marker. A missing or
// unparsable file degrades to the zero-value State rather than an
// error, matching this module family's tolerant-read convention.
func LoadNudgeState(sessionDir string) NudgeState {
	data, err := os.ReadFile(nudgeStateFile(sessionDir))
	if err != nil {
		return NudgeState{}
	}
	var st NudgeState
	if err := json.Unmarshal(data, &st); err != nil {
		return NudgeState{}
	}
	return st
}

func saveNudgeState(sessionDir string, st NudgeState) error {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return claudexerr.New(claudexerr.KindFilesystemFailure, "thread.saveNudgeState", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return claudexerr.New(claudexerr.KindFilesystemFailure, "thread.saveNudgeState", err)
	}
	if err := os.WriteFile(nudgeStateFile(sessionDir), data, 0o644); err != nil {
		return claudexerr.New(claudexerr.KindFilesystemFailure, "thread.saveNudgeState", err)
	}
	return nil
}

// NudgeResult is what EvaluateNudge decides for the current turn.
type NudgeResult struct {
	ShouldNudge bool
	Message     string
}

const nudgeMessage = "Heads up: you've touched multiple files without recording a decision — consider logging one."

// EvaluateNudge implements the Stop-event nudge policy.
// Every call increments turnCount and persists lastKnownDecisionCount
// regardless of outcome; a nudge fires only when the rate limit has
// elapsed and file churn outran decision-recording since the last
// check.
func EvaluateNudge(sessionDir string, fileModifyCount, decisionCount int) (NudgeResult, error) {
	st := LoadNudgeState(sessionDir)
	st.TurnCount++

	rateLimited := st.LastNudgeTurn > 0 && (st.TurnCount-st.LastNudgeTurn) < nudgeCooldownTurns

	result := NudgeResult{}
	if !rateLimited && fileModifyCount >= 2 && decisionCount <= st.LastKnownDecisionCount {
		result = NudgeResult{ShouldNudge: true, Message: nudgeMessage}
		st.LastNudgeTurn = st.TurnCount
	}

	st.LastKnownDecisionCount = decisionCount
	if err := saveNudgeState(sessionDir, st); err != nil {
		logging.Get(logging.CategoryThread).Warn("failed to persist nudge state: %v", err)
		return result, err
	}
	return result, nil
}
