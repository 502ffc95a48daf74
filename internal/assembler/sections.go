package assembler

import (
	"fmt"
	"math"
	"strings"
)

// section is one candidate block in priority order. inline renders the
// full form; ref renders the compact 2-line reference form. alwaysInline
// sections never switch to ref even under budget pressure.
type section struct {
	tag          string
	alwaysInline bool
	inline       func() string
	ref          func() string
	present      bool
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func buildHeaderSection() section {
	return section{
		tag:          "header",
		alwaysInline: true,
		present:      true,
		inline:       func() string { return "# Context" },
		ref:          func() string { return "# Context" },
	}
}

func buildIdentitySection(identity string) section {
	return section{
		tag:          "identity",
		alwaysInline: true,
		present:      identity != "",
		inline:       func() string { return "## Identity\n" + identity },
		ref:          func() string { return "## Identity\n" + identity },
	}
}

func buildProjectSection(projectContext string) section {
	return section{
		tag:          "project",
		alwaysInline: true,
		present:      projectContext != "",
		inline:       func() string { return "## Project\n" + projectContext },
		ref:          func() string { return "## Project\n" + projectContext },
	}
}

// buildActiveFocusSection renders the HOT-file line format:
// `path` — HOT (pressure: 0.XX) [phase]`, the [phase] marker present iff
// phase_boosted.
func buildActiveFocusSection(hot []HotFile) section {
	render := func() string {
		var b strings.Builder
		b.WriteString("## Active Focus\n")
		for _, f := range hot {
			line := fmt.Sprintf("- `%s` — HOT (pressure: %.2f)", f.Path, f.RawPressure)
			if f.PhaseBoosted {
				line += " [phase]"
			}
			b.WriteString(line + "\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return section{
		tag:          "hologram",
		alwaysInline: true,
		present:      len(hot) > 0,
		inline:       render,
		ref:          render,
	}
}

func buildGSDSection(g *GSDState) section {
	render := func() string {
		var b strings.Builder
		pct := 0
		if g.TotalPhases > 0 {
			pct = int(math.Round(float64(g.Phase) / float64(g.TotalPhases) * 100.0))
		}
		b.WriteString(fmt.Sprintf("## GSD Project Phase\nPhase %d of %d, %d%% complete\n", g.Phase, g.TotalPhases, pct))
		if g.PhaseGoal != "" {
			b.WriteString("Goal: " + g.PhaseGoal + "\n")
		}
		if len(g.SuccessCriteria) > 0 {
			b.WriteString("Success criteria:\n")
			for i, c := range g.SuccessCriteria {
				if i >= 4 {
					break
				}
				b.WriteString("- " + truncate(c, 100) + "\n")
			}
		}
		if len(g.MustHaves) > 0 {
			b.WriteString("Must-haves:\n")
			for i, m := range g.MustHaves {
				if i >= 4 {
					break
				}
				b.WriteString("- " + m + "\n")
			}
		}
		if g.HasRequirements {
			b.WriteString(fmt.Sprintf("Requirements: %d/%d complete\n", g.RequirementDone, g.RequirementTotal))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return section{
		tag:          "gsd",
		alwaysInline: true,
		present:      g != nil,
		inline:       render,
		ref:          render,
	}
}
