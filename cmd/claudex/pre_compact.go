package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"claudex/internal/flush"
	"claudex/internal/gsd"
	"claudex/internal/hookio"
	"claudex/internal/runtimectx"
	"claudex/internal/sidecar"
	"claudex/internal/store"
	"claudex/internal/thread"
)

// flushCooldownWindowMs is the 30s debounce window for executeFlush:
// repeated PreCompact calls inside this window skip the flush steps
// but still attempt the (separately debounced, 60s) structured
// checkpoint.
const flushCooldownWindowMs = 30_000

var preCompactCmd = &cobra.Command{
	Use:   "pre-compact",
	Short: "Flush/Checkpoint Orchestrator: drain reasoning and pressure, write the structured checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventPreCompact, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.PreCompactInput)

		s, err := store.Open(rtCtx.Paths.DBPath())
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		defer s.Close()

		now := rtCtx.Clock.Now()
		project := in.Cwd
		pp := runtimectx.NewProjectPaths(in.Cwd)
		cooldownFile := rtCtx.Paths.FlushCooldownFile()

		signals, _ := thread.ReadTailSignals(in.TranscriptPath)
		gist := thread.ExtractAssistantGist(signals)

		if !flush.CooldownActive(cooldownFile, now.UnixMilli(), flushCooldownWindowMs) {
			orchestrator := &flush.Orchestrator{Store: s, CooldownFile: cooldownFile, CheckpointsDir: pp.CheckpointsDir()}
			orchestrator.ExecuteFlush(sidecar.New(), rtCtx.Paths.HologramPortFile(), flush.FlushInput{
				SessionID:      in.SessionID,
				Project:        project,
				ReasoningText:  gist,
				PressureScores: s.GetPressureScores(project),
				ReasoningDir:   pp.ReasoningDir(),
				PressureFile:   pp.PressureFile(),
			}, now)
		}

		writeStructuredCheckpoint(s, pp, in, gist, now)

		fmt.Println(mustJSON(hookio.Empty()))
		return nil
	},
}

func writeStructuredCheckpoint(s *store.Store, pp runtimectx.ProjectPaths, in hookio.PreCompactInput, gist string, now time.Time) {
	hotScores := s.GetHotFiles(in.Cwd)
	hotPaths := make([]string, 0, len(hotScores))
	for _, p := range hotScores {
		hotPaths = append(hotPaths, p.FilePath)
	}

	recent := s.GetRecentObservations(20, in.Cwd)
	var changed, read []string
	seenChanged, seenRead := map[string]bool{}, map[string]bool{}
	for _, o := range recent {
		for _, f := range o.FilesModified {
			if !seenChanged[f] {
				seenChanged[f] = true
				changed = append(changed, f)
			}
		}
		for _, f := range o.FilesRead {
			if !seenRead[f] {
				seenRead[f] = true
				read = append(read, f)
			}
		}
	}

	var decisions []string
	for _, d := range s.GetRecentConsensus(5, in.Cwd) {
		decisions = append(decisions, fmt.Sprintf("%s [%s]", d.Title, d.Status))
	}

	prevRef, _ := flush.ReadLatestCheckpointRef(pp.CheckpointsDir())
	cpID := flush.NextCheckpointID(pp.CheckpointsDir(), now)

	cp := flush.Checkpoint{
		Meta: flush.CheckpointMeta{
			CheckpointID:       cpID,
			SessionID:          in.SessionID,
			Scope:              projectScope(in.Cwd),
			CreatedAt:          now.UTC().Format(time.RFC3339),
			Trigger:            in.Trigger,
			PreviousCheckpoint: prevRef,
		},
		Working:   gist,
		Decisions: decisions,
		Files:     flush.CheckpointFiles{Changed: changed, Read: read, Hot: hotPaths},
		Thread:    &flush.CheckpointThread{Summary: gist},
	}

	if gsdState := gsd.BuildGSDState(pp); gsdState != nil {
		cp.GSD = &flush.CheckpointGSD{Phase: gsdState.Phase, PhaseGoal: gsdState.PhaseGoal, MustHaves: gsdState.MustHaves}
	}

	written, err := flush.WriteCheckpoint(pp.CheckpointsDir(), cp, now)
	if err != nil {
		fmt.Fprintf(stderrWriter, "warning: WriteCheckpoint failed: %v\n", err)
		return
	}
	if !written {
		return
	}

	if err := s.UpsertCheckpointState(store.CheckpointState{
		SessionID:      in.SessionID,
		ActiveFiles:    hotPaths,
		LastEpoch:      now.UnixMilli(),
		BoostTurnCount: 0,
	}); err != nil {
		fmt.Fprintf(stderrWriter, "warning: UpsertCheckpointState failed: %v\n", err)
	}
}
