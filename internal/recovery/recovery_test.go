package recovery

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"claudex/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "claudex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func touchFileAt(t *testing.T, path string, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestRunReportsDBIntegrityOK(t *testing.T) {
	s := openTestStore(t)
	report := Run(s, filepath.Join(t.TempDir(), "port"), filepath.Join(t.TempDir(), "cooldown"), time.Now())
	assertStatus(t, report, "db-integrity", StatusOK)
}

func TestStalePortFileRemovedWhenUnreachable(t *testing.T) {
	dir := t.TempDir()
	portFile := filepath.Join(dir, "port")
	now := time.Now()
	touchFileAt(t, portFile, "59999", now.Add(-25*time.Hour))

	s := openTestStore(t)
	report := Run(s, portFile, filepath.Join(dir, "cooldown"), now)

	_, err := os.Stat(portFile)
	assert.True(t, os.IsNotExist(err), "expected stale unreachable port marker removed, stat err=%v", err)
	assertStatus(t, report, "stale-sidecar-port", StatusRecovered)
}

func TestStalePortFileKeptWhenPortStillLive(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	dir := t.TempDir()
	portFile := filepath.Join(dir, "port")
	now := time.Now()
	touchFileAt(t, portFile, strconv.Itoa(port), now.Add(-25*time.Hour))

	s, err := store.Open(filepath.Join(dir, "claudex.db"))
	require.NoError(t, err)
	defer s.Close()
	report := Run(s, portFile, filepath.Join(dir, "cooldown"), now)

	require.FileExists(t, portFile, "expected live port marker kept")
	assertStatus(t, report, "stale-sidecar-port", StatusOK)
}

func TestFreshPortFileUntouched(t *testing.T) {
	dir := t.TempDir()
	portFile := filepath.Join(dir, "port")
	now := time.Now()
	touchFileAt(t, portFile, "59999", now.Add(-1*time.Hour))

	s := openTestStore(t)
	Run(s, portFile, filepath.Join(dir, "cooldown"), now)

	assert.FileExists(t, portFile, "expected fresh marker kept")
}

func TestStaleCooldownFileRemovedWhenOld(t *testing.T) {
	dir := t.TempDir()
	cooldownFile := filepath.Join(dir, "cooldown")
	now := time.Now()
	old := now.Add(-2 * time.Hour).UnixMilli()
	touchFileAt(t, cooldownFile, strconv.FormatInt(old, 10), now)

	s := openTestStore(t)
	report := Run(s, filepath.Join(dir, "port"), cooldownFile, now)

	_, err := os.Stat(cooldownFile)
	assert.True(t, os.IsNotExist(err), "expected stale cooldown file removed, stat err=%v", err)
	assertStatus(t, report, "stale-flush-cooldown", StatusRecovered)
}

func TestStaleCooldownFileRemovedWhenMalformed(t *testing.T) {
	dir := t.TempDir()
	cooldownFile := filepath.Join(dir, "cooldown")
	now := time.Now()
	touchFileAt(t, cooldownFile, "not-a-number", now)

	s := openTestStore(t)
	Run(s, filepath.Join(dir, "port"), cooldownFile, now)

	_, err := os.Stat(cooldownFile)
	assert.True(t, os.IsNotExist(err), "expected malformed cooldown file removed, stat err=%v", err)
}

func TestFreshCooldownFileKept(t *testing.T) {
	dir := t.TempDir()
	cooldownFile := filepath.Join(dir, "cooldown")
	now := time.Now()
	touchFileAt(t, cooldownFile, strconv.FormatInt(now.UnixMilli(), 10), now)

	s := openTestStore(t)
	Run(s, filepath.Join(dir, "port"), cooldownFile, now)

	assert.FileExists(t, cooldownFile, "expected fresh cooldown file kept")
}

func TestOrphanSessionsMarkedFailed(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	require.NoError(t, s.CreateSession(store.Session{
		SessionID:      "orphan-1",
		Scope:          "global",
		Cwd:            "/tmp",
		StartedAtEpoch: now.Add(-13 * time.Hour).UnixMilli(),
	}))

	dir := t.TempDir()
	report := Run(s, filepath.Join(dir, "port"), filepath.Join(dir, "cooldown"), now)
	assertStatus(t, report, "orphan-sessions", StatusRecovered)

	assert.Nil(t, s.GetActiveSession("orphan-1"), "expected orphan session no longer active")
}

func assertStatus(t *testing.T, report Report, name string, want Status) {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			assert.Equal(t, want, c.Status, "%s: %s", name, c.Message)
			return
		}
	}
	t.Fatalf("check %s missing from report", name)
}
