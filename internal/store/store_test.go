package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"claudex/internal/observation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "claudex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesSchema(t *testing.T) {
	s := openTestStore(t)
	result, err := s.IntegrityCheck()
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestCreateAndGetActiveSession(t *testing.T) {
	s := openTestStore(t)
	sess := Session{SessionID: "sess-1", Scope: "global", Cwd: "/tmp", StartedAtEpoch: 1000}
	require.NoError(t, s.CreateSession(sess))

	got := s.GetActiveSession("sess-1")
	require.NotNil(t, got)
	assert.Equal(t, SessionActive, got.Status)
}

func TestUpdateSessionStatusEndsSession(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession(Session{SessionID: "sess-1", Scope: "global", Cwd: "/tmp", StartedAtEpoch: 1000}))
	require.NoError(t, s.UpdateSessionStatus("sess-1", SessionCompleted, 2000))
	assert.Nil(t, s.GetActiveSession("sess-1"), "expected no active session after completion")
}

func TestStoreAndSearchObservation(t *testing.T) {
	s := openTestStore(t)
	obs := observation.Observation{
		SessionID:        "sess-1",
		TimestampEpochMs: 1000,
		ToolName:         "Read",
		Category:         observation.CategoryDiscovery,
		Title:            "Read config.yaml",
		Content:          "database connection settings",
		Importance:       3,
	}
	id := s.StoreObservation(obs, nil)
	assert.Greater(t, id, int64(0), "expected positive id")

	results := s.SearchAll("connection", SearchOptions{Limit: 10})
	require.Len(t, results, 1)
	assert.Equal(t, "Read config.yaml", results[0].Title)
}

func TestSearchObservationsRespectsMinImportance(t *testing.T) {
	s := openTestStore(t)
	s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
		Title: "low priority", Content: "widget factory pattern", Importance: 1,
	}, nil)

	results := s.SearchAll("widget", SearchOptions{Limit: 10, MinImportance: 2})
	assert.Empty(t, results, "expected 0 results above min importance")
}

func TestSoftDeleteExcludesFromRecent(t *testing.T) {
	s := openTestStore(t)
	id := s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
		Title: "ephemeral", Content: "body", Importance: 2,
	}, nil)

	deleted := s.SoftDelete([]int64{id}, 5000)
	assert.Equal(t, 1, deleted)

	recent := s.GetRecentObservations(10, "")
	assert.Empty(t, recent, "expected soft-deleted row excluded")
}

func TestAccumulatePressureScoreClampsAndReclassifies(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AccumulatePressureScore("main.go", "", 0.5, 1000))
	require.NoError(t, s.AccumulatePressureScore("main.go", "", 0.9, 2000))

	scores := s.GetPressureScores("")
	require.Len(t, scores, 1)
	assert.Equal(t, 1.0, scores[0].RawPressure, "expected raw_pressure clamped to 1.0")
	assert.Equal(t, TemperatureHot, scores[0].Temperature)
}

func TestDecayAllScoresAppliesExponentialDecay(t *testing.T) {
	s := openTestStore(t)
	s.AccumulatePressureScore("main.go", "", 0.8, 0)

	dayMs := int64(1000 * 60 * 60 * 24)
	decayed, err := s.DecayAllScores("", dayMs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, decayed)

	scores := s.GetPressureScores("")
	require.Len(t, scores, 1)
	assert.Less(t, scores[0].RawPressure, 0.8, "expected pressure to decay below 0.8")
}

func TestCoOccurrenceCountSharedFile(t *testing.T) {
	s := openTestStore(t)
	id1 := s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Edit", Category: observation.CategoryChange,
		Title: "edit a", Content: "x", Importance: 3, FilesModified: []string{"a.go"},
	}, nil)
	s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Edit", Category: observation.CategoryChange,
		Title: "edit b", Content: "x", Importance: 3, FilesModified: []string{"a.go"},
	}, nil)

	assert.Equal(t, 1, s.CoOccurrenceCount(id1))
}

func TestOrphanSessionsFindsStaleActive(t *testing.T) {
	s := openTestStore(t)
	s.CreateSession(Session{SessionID: "old", Scope: "global", Cwd: "/tmp", StartedAtEpoch: 1000})
	s.CreateSession(Session{SessionID: "new", Scope: "global", Cwd: "/tmp", StartedAtEpoch: 999999999999})

	ids, err := s.OrphanSessions(500000)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids)
}

func TestDecayAllScoresIsIdempotentWithinInterval(t *testing.T) {
	s := openTestStore(t)
	s.AccumulatePressureScore("main.go", "", 0.9, 0)

	dayMs := int64(1000 * 60 * 60 * 24)
	now := 2 * dayMs
	hourMs := int64(1000 * 60 * 60)

	decayed, err := s.DecayAllScores("", now, hourMs)
	require.NoError(t, err)
	require.Equal(t, 1, decayed)

	scores := s.GetPressureScores("")
	require.Len(t, scores, 1)
	afterFirst := scores[0].RawPressure
	assert.InDelta(t, 0.9*math.Exp(-0.05*2), afterFirst, 1e-9)

	decayed, err = s.DecayAllScores("", now, hourMs)
	require.NoError(t, err)
	assert.Equal(t, 0, decayed, "expected repeat decay at same instant to be skipped")

	scores = s.GetPressureScores("")
	require.Len(t, scores, 1)
	assert.Equal(t, afterFirst, scores[0].RawPressure, "expected pressure unchanged by repeat call")
}

func TestProjectScopingIsolatesRows(t *testing.T) {
	s := openTestStore(t)
	projA := "projA"
	s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
		Title: "scoped", Content: "x", Importance: 2,
	}, &projA)
	s.StoreObservation(observation.Observation{
		SessionID: "sess-1", ToolName: "Read", Category: observation.CategoryDiscovery,
		Title: "global", Content: "x", Importance: 2,
	}, nil)

	scoped := s.GetRecentObservations(10, "projA")
	require.Len(t, scoped, 1)
	assert.Equal(t, "scoped", scoped[0].Title)

	global := s.GetRecentObservations(10, "")
	require.Len(t, global, 1)
	assert.Equal(t, "global", global[0].Title)
}
