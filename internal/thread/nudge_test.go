package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateNudgeFiresOnFileChurnWithoutDecisions(t *testing.T) {
	dir := t.TempDir()

	result, err := EvaluateNudge(dir, 3, 0)
	require.NoError(t, err)
	assert.True(t, result.ShouldNudge, "expected nudge to fire on first qualifying turn")
}

func TestEvaluateNudgeRateLimited(t *testing.T) {
	dir := t.TempDir()

	first, err := EvaluateNudge(dir, 3, 0)
	require.NoError(t, err)
	require.True(t, first.ShouldNudge, "expected first nudge to fire")

	for i := 0; i < nudgeCooldownTurns-1; i++ {
		result, err := EvaluateNudge(dir, 3, 0)
		require.NoError(t, err)
		assert.False(t, result.ShouldNudge, "expected rate-limited silence on turn %d", i+2)
	}
}

func TestEvaluateNudgeFiresAgainAfterCooldownElapses(t *testing.T) {
	dir := t.TempDir()

	_, err := EvaluateNudge(dir, 3, 0)
	require.NoError(t, err)
	for i := 0; i < nudgeCooldownTurns-1; i++ {
		_, err := EvaluateNudge(dir, 3, 0)
		require.NoError(t, err)
	}

	result, err := EvaluateNudge(dir, 3, 0)
	require.NoError(t, err)
	assert.True(t, result.ShouldNudge, "expected nudge to fire again once cooldown elapsed")
}

func TestEvaluateNudgeSkipsWhenDecisionsKeepPace(t *testing.T) {
	dir := t.TempDir()

	_, err := EvaluateNudge(dir, 3, 1)
	require.NoError(t, err)

	result, err := EvaluateNudge(dir, 3, 2)
	require.NoError(t, err)
	assert.False(t, result.ShouldNudge, "expected no nudge when decision count keeps pace with file churn")
}

func TestEvaluateNudgeSkipsBelowFileModifyThreshold(t *testing.T) {
	dir := t.TempDir()

	result, err := EvaluateNudge(dir, 1, 0)
	require.NoError(t, err)
	assert.False(t, result.ShouldNudge, "expected no nudge below the file-modify threshold")
}

func TestEvaluateNudgePersistsStateAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	_, err := EvaluateNudge(dir, 0, 5)
	require.NoError(t, err)

	st := LoadNudgeState(dir)
	assert.Equal(t, 5, st.LastKnownDecisionCount)
	assert.Equal(t, 1, st.TurnCount)
}
