package flush

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNextCheckpointIDStartsAtOne(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-07-29_cp1", NextCheckpointID(dir, now))
}

func TestNextCheckpointIDIncrementsPastExisting(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	for _, name := range []string{"2026-07-29_cp1.yaml", "2026-07-29_cp2.yaml", "2026-07-28_cp9.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("meta: {}"), 0o644))
	}
	assert.Equal(t, "2026-07-29_cp3", NextCheckpointID(dir, now))
}

func sampleCheckpoint(id string) Checkpoint {
	return Checkpoint{
		Meta: CheckpointMeta{
			CheckpointID: id,
			SessionID:    "sess-1",
			Scope:        "project",
			CreatedAt:    "2026-07-29T10:00:00Z",
			Trigger:      "manual",
			TokenUsage:   1200,
		},
		Working:   "implementing the pressure decay engine",
		Decisions: []string{"use exponential decay"},
		Files: CheckpointFiles{
			Changed: []string{"internal/pressure/pressure.go"},
			Hot:     []string{"internal/pressure/pressure.go"},
		},
	}
}

func TestWriteCheckpointWritesFileAndRef(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	want := sampleCheckpoint("2026-07-29_cp1")
	wrote, err := WriteCheckpoint(dir, want, now)
	require.NoError(t, err)
	require.True(t, wrote, "expected first checkpoint write to succeed")

	data, err := os.ReadFile(filepath.Join(dir, "2026-07-29_cp1.yaml"))
	require.NoError(t, err)
	var roundTrip Checkpoint
	require.NoError(t, yaml.Unmarshal(data, &roundTrip))
	want.Schema = CheckpointSchema
	want.Version = CheckpointVersion
	if diff := cmp.Diff(want, roundTrip); diff != "" {
		t.Fatalf("round-tripped checkpoint mismatch (-want +got):\n%s", diff)
	}

	ref, err := ReadLatestCheckpointRef(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-29_cp1.yaml", ref)
}

func TestWriteCheckpointDebouncesWithin60s(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	_, err := WriteCheckpoint(dir, sampleCheckpoint("2026-07-29_cp1"), now)
	require.NoError(t, err)

	wrote, err := WriteCheckpoint(dir, sampleCheckpoint("2026-07-29_cp2"), now.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, wrote, "expected second write within debounce window to be skipped")

	_, err = os.Stat(filepath.Join(dir, "2026-07-29_cp2.yaml"))
	assert.True(t, os.IsNotExist(err), "expected debounced checkpoint file not created, stat err=%v", err)

	ref, err := ReadLatestCheckpointRef(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-29_cp1.yaml", ref, "expected ref unchanged by debounced write")
}

func TestWriteCheckpointProceedsAfterDebounceWindow(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	_, err := WriteCheckpoint(dir, sampleCheckpoint("2026-07-29_cp1"), now)
	require.NoError(t, err)

	wrote, err := WriteCheckpoint(dir, sampleCheckpoint("2026-07-29_cp2"), now.Add(61*time.Second))
	require.NoError(t, err)
	assert.True(t, wrote, "expected write past the debounce window to proceed")

	ref, err := ReadLatestCheckpointRef(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-29_cp2.yaml", ref, "expected ref updated to second checkpoint")
}

func TestReadLatestCheckpointRefMissingIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	ref, err := ReadLatestCheckpointRef(dir)
	require.NoError(t, err)
	assert.Empty(t, ref)
}
