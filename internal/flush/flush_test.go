package flush

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudex/internal/sidecar"
	"claudex/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "claudex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecuteFlushCapturesReasoningAndPressure(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	o := &Orchestrator{Store: s, CooldownFile: filepath.Join(dir, "cooldown")}
	now := time.Now()

	result := o.ExecuteFlush(sidecar.New(), filepath.Join(dir, "no-port"), FlushInput{
		SessionID:     "sess-1",
		Project:       "",
		ReasoningText: "decided to batch writes",
		PressureScores: []store.PressureScore{
			{FilePath: "main.go", RawPressure: 0.8, LastAccessedEpoch: now.UnixMilli()},
		},
		ReasoningDir: filepath.Join(dir, "reasoning"),
		PressureFile: filepath.Join(dir, "pressure", "scores.md"),
	}, now)

	assert.Equal(t, 1, result.ReasoningCaptured)
	assert.Equal(t, 1, result.PressureScoresFlushed)
	assert.Equal(t, 2, result.MirrorFilesWritten)

	chains := s.GetRecentReasoning(5, "")
	require.Len(t, chains, 1)
	assert.Equal(t, "pre_compact", chains[0].Trigger)
}

func TestExecuteFlushActivatesCooldown(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	cooldownFile := filepath.Join(dir, "cooldown")
	o := &Orchestrator{Store: s, CooldownFile: cooldownFile}
	now := time.Now()

	o.ExecuteFlush(sidecar.New(), filepath.Join(dir, "no-port"), FlushInput{SessionID: "sess-1"}, now)

	assert.True(t, o.IsCooldownActive(now.UnixMilli(), 30_000), "expected in-process cooldown active after flush")
	assert.True(t, CooldownActive(cooldownFile, now.UnixMilli(), 30_000), "expected filesystem cooldown marker active after flush")
	assert.False(t, o.IsCooldownActive(now.UnixMilli()+31_000, 30_000), "expected cooldown expired after 31s")
}

func TestExecuteFlushReportsRescoreFromDBPressureWhenSidecarDown(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	require.NoError(t, s.UpsertPressureScore(store.PressureScore{
		FilePath: "hot.go", RawPressure: 0.9, LastAccessedEpoch: 1000,
	}))

	o := &Orchestrator{Store: s, CooldownFile: filepath.Join(dir, "cooldown")}
	result := o.ExecuteFlush(sidecar.New(), filepath.Join(dir, "no-port"), FlushInput{SessionID: "sess-1"}, time.Now())

	assert.True(t, result.HologramRescored, "expected HOT files in store to count as db-pressure rescore")
}

func TestCooldownActiveMissingMarkerIsInactive(t *testing.T) {
	assert.False(t, CooldownActive(filepath.Join(t.TempDir(), "cooldown"), 1000, 30_000))
}

func TestCooldownActiveMalformedMarkerIsInactive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldown")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	assert.False(t, CooldownActive(path, 1000, 30_000))
}

func TestResetCooldownReArmsFlush(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	cooldownFile := filepath.Join(dir, "cooldown")
	o := &Orchestrator{Store: s, CooldownFile: cooldownFile}
	now := time.Now()

	o.ExecuteFlush(sidecar.New(), filepath.Join(dir, "no-port"), FlushInput{SessionID: "sess-1"}, now)
	require.True(t, o.IsCooldownActive(now.UnixMilli(), 30_000))

	o.ResetCooldown()
	assert.False(t, o.IsCooldownActive(now.UnixMilli(), 30_000), "expected in-process cooldown cleared")
	assert.False(t, CooldownActive(cooldownFile, now.UnixMilli(), 30_000), "expected filesystem marker removed")
}
