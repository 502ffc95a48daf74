package gsd

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"claudex/internal/assembler"
	"claudex/internal/runtimectx"
)

// PhaseRelevance is GetPhaseRelevanceSet's output: the two file sets
// the phase boost multiplies by 1.4 and 1.2 respectively.
type PhaseRelevance struct {
	ActivePlanFiles []string
	OtherPlanFiles  []string
}

var phaseDirPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)-`)
var planFilePattern = regexp.MustCompile(`^(\d+)-(\d+)-PLAN\.md$`)

// GetPhaseRelevanceSet walks phasesDir's <NN[.M]-slug>/<NN-MM-PLAN.md>
// tree: every plan file in the phase directory whose
// number equals activePhase, and whose sibling SUMMARY.md is absent
// (the plan isn't completed), contributes its files_modified to
// activePlanFiles when its plan number equals activePlan, else to
// otherPlanFiles. A file named in both sets resolves to activePlanFiles
// only. When activePlan is 0, every file goes to otherPlanFiles.
func GetPhaseRelevanceSet(phasesDir string, activePhase float64, activePlan int) (PhaseRelevance, error) {
	entries, err := os.ReadDir(phasesDir)
	if err != nil {
		return PhaseRelevance{}, err
	}

	active := make(map[string]bool)
	other := make(map[string]bool)
	var activeOrder, otherOrder []string

	addActive := func(f string) {
		if !active[f] {
			active[f] = true
			activeOrder = append(activeOrder, f)
		}
	}
	addOther := func(f string) {
		if !other[f] {
			other[f] = true
			otherOrder = append(otherOrder, f)
		}
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := phaseDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil || num != activePhase {
			continue
		}

		dir := filepath.Join(phasesDir, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			fm := planFilePattern.FindStringSubmatch(f.Name())
			if fm == nil {
				continue
			}
			planNum, _ := strconv.Atoi(fm[2])
			summaryName := strings.TrimSuffix(f.Name(), "PLAN.md") + "SUMMARY.md"
			if _, err := os.Stat(filepath.Join(dir, summaryName)); err == nil {
				continue // plan already completed: excluded from both sets
			}

			plan, err := ParsePlan(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			if activePlan != 0 && planNum == activePlan {
				for _, fp := range plan.FilesModified {
					addActive(fp)
				}
			} else {
				for _, fp := range plan.FilesModified {
					addOther(fp)
				}
			}
		}
	}

	finalOther := otherOrder[:0:0]
	for _, f := range otherOrder {
		if active[f] {
			continue
		}
		finalOther = append(finalOther, f)
	}

	return PhaseRelevance{ActivePlanFiles: activeOrder, OtherPlanFiles: finalOther}, nil
}

// activePlanMustHaves returns the must-have list of the single plan
// file matching (activePhase, activePlan), or nil if it can't be found.
func activePlanMustHaves(phasesDir string, activePhase float64, activePlan int) []string {
	if activePlan == 0 {
		return nil
	}
	entries, err := os.ReadDir(phasesDir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := phaseDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil || num != activePhase {
			continue
		}
		dir := filepath.Join(phasesDir, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			fm := planFilePattern.FindStringSubmatch(f.Name())
			if fm == nil {
				continue
			}
			planNum, _ := strconv.Atoi(fm[2])
			if planNum != activePlan {
				continue
			}
			plan, err := ParsePlan(filepath.Join(dir, f.Name()))
			if err != nil {
				return nil
			}
			return truncateList(plan.MustHaves, 4, 200)
		}
	}
	return nil
}

// BuildGSDState assembles the assembler-facing GSDState from a
// project's .planning/ tree: STATE.md for the phase/plan pointer,
// ROADMAP.md for the phase's goal/success-criteria/total-phase-count,
// REQUIREMENTS.md for completion counts, and the active plan's own
// must-have list. Returns nil when the project carries no GSD state at
// all (no STATE.md), the signal the Assembler uses to omit the section.
func BuildGSDState(pp runtimectx.ProjectPaths) *assembler.GSDState {
	state, err := ParseState(pp.StateFile())
	if err != nil {
		return nil
	}

	roadmap, _ := ParseRoadmap(pp.RoadmapFile())
	goal := state.PhaseGoal
	var criteria []string
	for _, p := range roadmap {
		if p.Number == state.ActivePhase {
			if p.Goal != "" {
				goal = p.Goal
			}
			criteria = p.SuccessCriteria
			break
		}
	}

	mustHaves := activePlanMustHaves(pp.PhasesDir(), state.ActivePhase, state.ActivePlan)

	reqStats, reqErr := ParseRequirements(pp.RequirementsFile())

	return &assembler.GSDState{
		Phase:            int(state.ActivePhase),
		TotalPhases:      len(roadmap),
		PhaseGoal:        goal,
		SuccessCriteria:  criteria,
		MustHaves:        mustHaves,
		RequirementDone:  reqStats.Done,
		RequirementTotal: reqStats.Total,
		HasRequirements:  reqErr == nil && reqStats.Total > 0,
	}
}
