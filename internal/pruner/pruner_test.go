package pruner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudex/internal/observation"
	"claudex/internal/store"
)

func TestEvictionScoreHigherImportanceScoresHigher(t *testing.T) {
	low := eviction(prunableAt(1, 0, 0), 0, 0)
	high := eviction(prunableAt(5, 0, 0), 0, 0)
	assert.Greater(t, high, low, "expected higher importance to score higher EI")
}

func TestEvictionScoreDecaysWithAge(t *testing.T) {
	fresh := eviction(prunableAt(3, 0, 0), 0, 0)
	dayMs := int64(1000 * 60 * 60 * 24)
	old := eviction(prunableAt(3, 0, 0), 0, dayMs*120)
	assert.Less(t, old, fresh, "expected older observation to score lower")
}

func TestEvictionScoreConnectivityBoundedAtFive(t *testing.T) {
	atFive := eviction(prunableAt(3, 0, 0), 5, 0)
	atFifty := eviction(prunableAt(3, 0, 0), 50, 0)
	assert.Equal(t, atFive, atFifty, "expected conn factor to cap at coOccurrence=5")
}

func TestIsImmuneHighImportance(t *testing.T) {
	o := prunableAt(5, 0, 0)
	assert.True(t, isImmune(o, 0), "expected importance 5 to be immune")
}

func TestIsImmuneRecentlyAccessed(t *testing.T) {
	o := prunableAt(2, 3, 0)
	assert.True(t, isImmune(o, 0), "expected access_count>=3 within 180 days to be immune")
}

func TestIsImmuneNotTriggeredByLowAccessOldRow(t *testing.T) {
	dayMs := int64(1000 * 60 * 60 * 24)
	o := prunableAt(2, 1, 0)
	assert.False(t, isImmune(o, dayMs*200), "expected low-importance, low-access, old row to not be immune")
}

func prunableAt(importance, accessCount int, lastAccessedEpoch int64) store.PrunableObservation {
	return store.PrunableObservation{Importance: importance, AccessCount: accessCount, LastAccessedEpoch: lastAccessedEpoch}
}

func TestRunPrunesAtMostFiftyWhenOverThreshold(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "claudex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for i := 0; i < 1010; i++ {
		id := s.StoreObservation(observation.Observation{
			SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
			Title: "obs", Content: "x", Importance: 1, TimestampEpochMs: 1000,
		}, nil)
		require.Greater(t, id, int64(0))
	}

	dayMs := int64(1000 * 60 * 60 * 24)
	result := Run(s, "", 400*dayMs)

	assert.Equal(t, 50, result.Pruned)
	assert.Equal(t, 960, result.Remaining)
	assert.Equal(t, 960, s.NonDeletedCount(""))
}

func TestRunBelowThresholdPrunesNothing(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "claudex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
		Title: "obs", Content: "x", Importance: 1,
	}, nil)

	result := Run(s, "", 0)
	assert.Equal(t, 0, result.Pruned)
	assert.Equal(t, 1, result.Remaining)
}
