// Package flush drains transient session state into persistent
// records: reasoning capture, pressure persistence, flat-file markdown
// mirrors, a best-effort sidecar rescore, and the debounced structured
// YAML checkpoint. Steps run in order, each in its own error boundary,
// so one failure never aborts the rest.
package flush

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"claudex/internal/logging"
	"claudex/internal/sidecar"
	"claudex/internal/store"
)

// Orchestrator tracks the in-process cooldown timestamp and the
// filesystem cooldown marker path.
type Orchestrator struct {
	Store          *store.Store
	CooldownFile   string
	CheckpointsDir string

	lastFlushEpoch int64
}

// IsCooldownActive reports whether now is within ms of lastFlushEpoch.
func (o *Orchestrator) IsCooldownActive(nowMs int64, windowMs int64) bool {
	return nowMs-o.lastFlushEpoch < windowMs
}

// ResetCooldown clears both the in-process timestamp and the
// filesystem marker, re-arming the next flush immediately.
func (o *Orchestrator) ResetCooldown() {
	o.lastFlushEpoch = 0
	if o.CooldownFile != "" {
		_ = os.Remove(o.CooldownFile)
	}
}

// FlushInput bundles executeFlush's parameters. Project is the
// pressure-score scoping key ("" = global), distinct from the session's
// scope label.
type FlushInput struct {
	SessionID      string
	Project        string
	ReasoningText  string
	PressureScores []store.PressureScore
	ReasoningDir   string
	PressureFile   string
}

// FlushResult is executeFlush's return shape.
type FlushResult struct {
	DurationMs            int64
	ReasoningCaptured      int
	PressureScoresFlushed  int
	MirrorFilesWritten     int
	HologramRescored       bool
}

// ExecuteFlush runs the five flush steps in order, each in its own
// error boundary: a failure in one step never aborts the others, and
// the returned counts reflect exactly what happened.
func (o *Orchestrator) ExecuteFlush(sidecarClient *sidecar.Client, portFile string, in FlushInput, now time.Time) FlushResult {
	start := now
	var result FlushResult

	var projectPtr *string
	if in.Project != "" {
		projectPtr = &in.Project
	}

	if in.ReasoningText != "" {
		id := o.Store.InsertReasoning(store.ReasoningChain{
			SessionID:        in.SessionID,
			Project:          projectPtr,
			TimestampEpochMs: now.UnixMilli(),
			Trigger:          "pre_compact",
			Title:            "Pre-compact reasoning",
			Reasoning:        in.ReasoningText,
			Importance:       3,
		})
		if id > 0 {
			result.ReasoningCaptured = 1
		} else {
			logging.Get(logging.CategoryFlush).Warn("flush: insertReasoning failed")
		}
	}

	for _, ps := range in.PressureScores {
		if err := o.Store.UpsertPressureScore(ps); err != nil {
			logging.Get(logging.CategoryFlush).Warn("flush: upsertPressureScore failed for %s: %v", ps.FilePath, err)
			continue
		}
		result.PressureScoresFlushed++
	}

	if in.ReasoningText != "" && in.ReasoningDir != "" {
		if err := writeMirror(filepath.Join(in.ReasoningDir, "latest.md"), "# Reasoning\n\n"+in.ReasoningText); err != nil {
			logging.Get(logging.CategoryFlush).Warn("flush: reasoning mirror write failed: %v", err)
		} else {
			result.MirrorFilesWritten++
		}
	}
	if in.PressureFile != "" {
		if err := writeMirror(in.PressureFile, renderPressureSnapshot(o.Store, in.Project)); err != nil {
			logging.Get(logging.CategoryFlush).Warn("flush: pressure mirror write failed: %v", err)
		} else {
			result.MirrorFilesWritten++
		}
	}

	result.HologramRescored = attemptRescore(o.Store, sidecarClient, portFile, in.Project)

	o.lastFlushEpoch = now.UnixMilli()
	touchCooldownFile(o.CooldownFile, o.lastFlushEpoch)

	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func writeMirror(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// snapshot-overwrite, not append: a flush mirror always reflects
	// only the latest state
	return os.WriteFile(path, []byte(content), 0o644)
}

func renderPressureSnapshot(s *store.Store, project string) string {
	scores := s.GetPressureScores(project)
	out := "# Pressure Snapshot\n\n"
	for _, p := range scores {
		out += fmt.Sprintf("- `%s` — %s (pressure: %.2f)\n", p.FilePath, p.Temperature, p.RawPressure)
	}
	return out
}

// attemptRescore tries the sidecar; if unreachable but HOT files exist
// in the store, that still counts as a successful rescore report
// (source="db-pressure").
func attemptRescore(s *store.Store, client *sidecar.Client, portFile, project string) bool {
	if client != nil {
		if port, err := sidecar.ReadPort(portFile); err == nil {
			if _, err := client.Query(port, sidecar.Request{ID: "flush-rescore", Type: "rescore"}); err == nil {
				return true
			}
		}
	}
	return len(s.GetHotFiles(project)) > 0
}

// CooldownActive reads the filesystem cooldown marker (the
// cross-process coordination primitive, since every hook invocation
// is a fresh process with no surviving in-process state) and reports
// whether now is within windowMs of the last flush
// it recorded. A missing or unparsable marker is treated as "no flush
// yet" — never active.
func CooldownActive(path string, nowMs, windowMs int64) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	last, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return false
	}
	return nowMs-last < windowMs
}

func touchCooldownFile(path string, epochMs int64) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(fmt.Sprintf("%d", epochMs)), 0o644)
}
