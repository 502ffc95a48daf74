package main

import (
	"os"
	"path/filepath"
	"strings"
)

// stderrWriter is where a hook command logs a failure it wants visible
// in the per-hook append-only log file the host redirects stderr to,
// without ever letting that failure surface as a non-empty exit code.
var stderrWriter = os.Stderr

// nowMillis reads the wall clock through rtCtx.Clock (a SystemClock in
// production, a FixedClock in tests that construct rtCtx directly)
// rather than calling time.Now() from inside a hook body, so every
// timestamp a single invocation produces is internally consistent.
func nowMillis() int64 {
	return rtCtx.Clock.Now().UnixMilli()
}

// projectScope renders a cwd into the Session.scope value: "global"
// when no project directory is known, else "project:<name>" keyed off
// the directory's base name.
func projectScope(cwd string) string {
	if cwd == "" {
		return "global"
	}
	return "project:" + filepath.Base(cwd)
}

// sessionDir resolves the per-session directory the Decision/Thread
// Detector's file-backed NudgeState lives under.
func sessionDir(sessionID string) string {
	return filepath.Join(rtCtx.Paths.SessionsDir(), sessionID)
}

// readCheckpointFile reads one named checkpoint (or latest.yaml's ref)
// out of a project's checkpoints directory.
func readCheckpointFile(checkpointsDir, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(checkpointsDir, name))
}

// readOptionalFile returns the trimmed content of path, or "" when the
// file is absent or unreadable; the assembler omits sections whose
// source is empty.
func readOptionalFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
