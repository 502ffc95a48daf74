package flush

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"claudex/internal/claudexerr"
	"claudex/internal/logging"
)

// checkpointLatestDebounce is the 60s window writes to latest.yaml
// within are debounced.
const checkpointLatestDebounce = 60 * time.Second

// CheckpointSchema and CheckpointVersion are the fixed checkpoint
// file format markers, stamped by WriteCheckpoint regardless of what
// the caller's Checkpoint value carries.
const (
	CheckpointSchema  = "claudex/checkpoint"
	CheckpointVersion = 1
)

// CheckpointMeta is the checkpoint file's meta block.
type CheckpointMeta struct {
	CheckpointID       string `yaml:"checkpoint_id"`
	SessionID          string `yaml:"session_id"`
	Scope              string `yaml:"scope"`
	CreatedAt          string `yaml:"created_at"`
	Trigger            string `yaml:"trigger"`
	TokenUsage         int    `yaml:"token_usage"`
	PreviousCheckpoint string `yaml:"previous_checkpoint,omitempty"`
}

// CheckpointFiles is the checkpoint file's files block.
type CheckpointFiles struct {
	Changed []string `yaml:"changed,omitempty"`
	Read    []string `yaml:"read,omitempty"`
	Hot     []string `yaml:"hot,omitempty"`
}

// CheckpointThreadExchange is one {role, gist} entry in the checkpoint's
// thread.key_exchanges list.
type CheckpointThreadExchange struct {
	Role string `yaml:"role"`
	Gist string `yaml:"gist"`
}

// CheckpointThread is the checkpoint file's optional thread block,
// fed by the transcript-tail detector.
type CheckpointThread struct {
	Summary      string                     `yaml:"summary"`
	KeyExchanges []CheckpointThreadExchange `yaml:"key_exchanges,omitempty"`
}

// CheckpointGSD is the checkpoint file's optional gsd block, fed by the
// GSD reader.
type CheckpointGSD struct {
	Phase     int      `yaml:"phase"`
	PhaseGoal string   `yaml:"phase_goal,omitempty"`
	MustHaves []string `yaml:"must_haves,omitempty"`
}

// Checkpoint is the full structured checkpoint document written as the
// pre-compact safety net.
type Checkpoint struct {
	Schema         string            `yaml:"schema"`
	Version        int               `yaml:"version"`
	Meta           CheckpointMeta    `yaml:"meta"`
	Working        string            `yaml:"working,omitempty"`
	Decisions      []string          `yaml:"decisions,omitempty"`
	Files          CheckpointFiles   `yaml:"files"`
	OpenQuestions  []string          `yaml:"open_questions,omitempty"`
	Learnings      []string          `yaml:"learnings,omitempty"`
	GSD            *CheckpointGSD    `yaml:"gsd,omitempty"`
	Thread         *CheckpointThread `yaml:"thread,omitempty"`
}

// checkpointRef is the contents of latest.yaml: a pointer to the most
// recently written checkpoint file.
type checkpointRef struct {
	Ref string `yaml:"ref"`
}

// NextCheckpointID computes the YYYY-MM-DD_cpN identifier for the nth
// checkpoint written today in dir, scanning existing files for the
// highest N already used so a restarted process doesn't collide.
func NextCheckpointID(dir string, now time.Time) string {
	datePrefix := now.Format("2006-01-02")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Sprintf("%s_cp1", datePrefix)
	}

	highest := 0
	prefix := datePrefix + "_cp"
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(name, prefix)); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s_cp%d", datePrefix, highest+1)
}

// WriteCheckpoint marshals cp to YAML and writes it to
// <dir>/<checkpoint_id>.yaml, then updates latest.yaml to point at it,
// unless the existing latest.yaml was written within the last 60s (the
// debounce window), in which case the write is skipped
// entirely and WriteCheckpoint returns (false, nil).
func WriteCheckpoint(dir string, cp Checkpoint, now time.Time) (bool, error) {
	latestPath := filepath.Join(dir, "latest.yaml")
	if info, err := os.Stat(latestPath); err == nil {
		if now.Sub(info.ModTime()) < checkpointLatestDebounce {
			logging.Get(logging.CategoryFlush).Info("checkpoint write debounced: %s", latestPath)
			return false, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, claudexerr.New(claudexerr.KindFilesystemFailure, "flush.WriteCheckpoint", err)
	}

	cp.Schema = CheckpointSchema
	cp.Version = CheckpointVersion

	data, err := yaml.Marshal(cp)
	if err != nil {
		return false, claudexerr.New(claudexerr.KindFilesystemFailure, "flush.WriteCheckpoint", err)
	}

	checkpointPath := filepath.Join(dir, cp.Meta.CheckpointID+".yaml")
	if err := os.WriteFile(checkpointPath, data, 0o644); err != nil {
		return false, claudexerr.New(claudexerr.KindFilesystemFailure, "flush.WriteCheckpoint", err)
	}

	refData, err := yaml.Marshal(checkpointRef{Ref: cp.Meta.CheckpointID + ".yaml"})
	if err != nil {
		return false, claudexerr.New(claudexerr.KindFilesystemFailure, "flush.WriteCheckpoint", err)
	}
	if err := os.WriteFile(latestPath, refData, 0o644); err != nil {
		return false, claudexerr.New(claudexerr.KindFilesystemFailure, "flush.WriteCheckpoint", err)
	}
	// Stamp mtime to the logical flush time rather than wall-clock time
	// written by WriteFile, so the debounce check above compares against
	// the same clock the caller is using (tests inject a fixed `now`).
	_ = os.Chtimes(latestPath, now, now)

	return true, nil
}

// ReadLatestCheckpointRef resolves latest.yaml to the checkpoint file
// it names, or "" if no checkpoint has been written yet.
func ReadLatestCheckpointRef(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "latest.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", claudexerr.New(claudexerr.KindFilesystemFailure, "flush.ReadLatestCheckpointRef", err)
	}
	var ref checkpointRef
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return "", nil
	}
	return ref.Ref, nil
}
