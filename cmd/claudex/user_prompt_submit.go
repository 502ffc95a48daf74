package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claudex/internal/assembler"
	"claudex/internal/flush"
	"claudex/internal/gsd"
	"claudex/internal/hookio"
	"claudex/internal/pressure"
	"claudex/internal/runtimectx"
	"claudex/internal/sidecar"
	"claudex/internal/store"
)

const defaultMaxTokens = 4000 // context assembly token budget

// boostPressureDefault is the literal per-temperature raw_pressure the
// sidecar's bare path lists are mapped to when the response carries no
// per-file score.
var boostPressureDefault = map[string]float64{
	"hot":  0.9,
	"warm": 0.5,
	"cold": 0.1,
}

var userPromptSubmitCmd = &cobra.Command{
	Use:   "user-prompt-submit",
	Short: "Context Assembler: inject the tiered context block for the new prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventUserPromptSubmit, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.UserPromptSubmitInput)

		s, err := store.Open(rtCtx.Paths.DBPath())
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		defer s.Close()

		project := in.Cwd
		now := rtCtx.Clock.Now()
		pp := runtimectx.NewProjectPaths(in.Cwd)

		gsdState := gsd.BuildGSDState(pp)
		activeFiles, otherFiles := phaseRelevanceSets(pp, in.Cwd)

		boosted := pressure.ApplyPhaseBoost(s.GetPressureScores(project), activeFiles, otherFiles)
		boostedByPath := make(map[string]pressure.Boosted, len(boosted))
		for _, b := range boosted {
			boostedByPath[b.FilePath] = b
		}

		cs := s.GetCheckpointState(in.SessionID)
		boostFiles := sidecar.BoostFilesForSession(cs, now)

		recent := s.GetRecentObservations(10, project)
		recentFiles := make([]string, 0, len(recent))
		for _, o := range recent {
			recentFiles = append(recentFiles, o.FilesModified...)
		}

		client := sidecar.New()
		result := sidecar.QueryWithFallback(client, s, sidecar.QueryParams{
			Prompt:      in.Prompt,
			Session:     in.SessionID,
			RecentFiles: recentFiles,
			Project:     project,
			ProjectDir:  in.Cwd,
			BoostFiles:  boostFiles,
			PortFile:    rtCtx.Paths.HologramPortFile(),
		})
		if result.Source == sidecar.SourceHologram && len(boostFiles) > 0 {
			if err := sidecar.CommitBoostTurn(s, in.SessionID, cs, now); err != nil {
				logBoostCommitFailure(err)
			}
		}

		var searchResults []store.ObservationRow
		if in.Prompt != "" {
			searchResults = s.SearchObservations(in.Prompt, store.SearchOptions{Project: project, Limit: 5, MinImportance: 1})
			for _, r := range searchResults {
				s.TouchObservation(r.ID, now.UnixMilli())
			}
		}

		src := assembler.ContextSources{
			Identity:           readOptionalFile(rtCtx.Paths.Identity()),
			ProjectContext:     readOptionalFile(pp.PlanningSummaryFile()),
			Hologram:           toHotFiles(result.Hot, boostedByPath, boostPressureDefault["hot"]),
			WarmFiles:          toWarmFiles(result.Warm, boostedByPath, boostPressureDefault["warm"]),
			SearchResults:      searchResults,
			RecentObservations: recent,
			ReasoningChains:    s.GetRecentReasoning(5, project),
			ConsensusDecisions: s.GetRecentConsensus(5, project),
			GSDState:           gsdState,
			Scope:              projectScope(in.Cwd),
			PostCompaction:     buildSessionContinuity(pp, boostFiles, now),
		}

		out := assembler.Assemble(src, defaultMaxTokens, now.UnixMilli())
		if out.Markdown == "" {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		fmt.Println(mustJSON(hookio.WithContext(hookio.EventUserPromptSubmit, out.Markdown)))
		return nil
	},
}

func logBoostCommitFailure(err error) {
	fmt.Fprintf(stderrWriter, "warning: boost turn commit failed: %v\n", err)
}

// phaseRelevanceSets resolves the GSD Reader's phase relevance set for
// the project's currently active phase/plan, returning empty sets (no
// boost) when the project carries no GSD state at all.
func phaseRelevanceSets(pp runtimectx.ProjectPaths, cwd string) (map[string]bool, map[string]bool) {
	if cwd == "" {
		return nil, nil
	}
	state, err := gsd.ParseState(pp.StateFile())
	if err != nil {
		return nil, nil
	}
	rel, err := gsd.GetPhaseRelevanceSet(pp.PhasesDir(), state.ActivePhase, state.ActivePlan)
	if err != nil {
		return nil, nil
	}
	active := toSet(rel.ActivePlanFiles)
	other := toSet(rel.OtherPlanFiles)
	return pressure.DedupPlanFiles(active, other)
}

func toSet(files []string) map[string]bool {
	out := make(map[string]bool, len(files))
	for _, f := range files {
		out[f] = true
	}
	return out
}

// toHotFiles and toWarmFiles resolve the sidecar's scored file lists
// into assembler entries. The per-file pressure is taken, in order,
// from the sidecar's own score, from the locally phase-boosted
// PressureScore row, and finally from the boost_pressure literal
// default for paths nothing has scored yet.
func toHotFiles(files []sidecar.ScoredFile, boosted map[string]pressure.Boosted, fallback float64) []assembler.HotFile {
	out := make([]assembler.HotFile, 0, len(files))
	for _, f := range files {
		b, local := boosted[f.Path]
		raw := f.RawPressure
		if raw == 0 {
			raw = fallback
			if local {
				raw = b.RawPressure
			}
		}
		out = append(out, assembler.HotFile{Path: f.Path, RawPressure: raw, PhaseBoosted: local && b.PhaseBoosted})
	}
	return out
}

func toWarmFiles(files []sidecar.ScoredFile, boosted map[string]pressure.Boosted, fallback float64) []assembler.WarmFile {
	out := make([]assembler.WarmFile, 0, len(files))
	for _, f := range files {
		raw := f.RawPressure
		if raw == 0 {
			raw = fallback
			if b, ok := boosted[f.Path]; ok {
				raw = b.RawPressure
			}
		}
		out = append(out, assembler.WarmFile{Path: f.Path, RawPressure: raw})
	}
	return out
}

// buildSessionContinuity renders the post-compact-only Session
// Continuity section from the most recent structured checkpoint, but
// only while the post-compact active-file boost window (the same
// <=30min/<=3-turn window sidecar.BoostFilesForSession gates) is still
// open — outside it this turn is an ordinary prompt, not a
// just-compacted one.
func buildSessionContinuity(pp runtimectx.ProjectPaths, boostFiles []string, now time.Time) *assembler.SessionContinuity {
	if len(boostFiles) == 0 {
		return nil
	}
	ref, err := flush.ReadLatestCheckpointRef(pp.CheckpointsDir())
	if err != nil || ref == "" {
		return nil
	}
	data, err := readCheckpointFile(pp.CheckpointsDir(), ref)
	if err != nil {
		return nil
	}
	var cp flush.Checkpoint
	if err := yaml.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &assembler.SessionContinuity{Summary: cp.Working, RecentDecisions: cp.Decisions}
}
