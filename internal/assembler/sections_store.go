package assembler

import (
	"fmt"
	"strings"

	"claudex/internal/store"
)

func buildFlowReasoningSection(chains []store.ReasoningChain, nowMs int64) section {
	inline := func() string {
		var b strings.Builder
		b.WriteString("## Flow Reasoning\n")
		for _, c := range chains {
			b.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", c.Title, FormatRelativeTime(c.TimestampEpochMs, nowMs), c.Reasoning))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	ref := func() string { return refSummary("Flow Reasoning", len(chains), latestTitle(chains), nowMs, latestTimestamp(chains)) }
	return section{tag: "reasoning", present: len(chains) > 0, inline: inline, ref: ref}
}

func latestTitle(chains []store.ReasoningChain) string {
	if len(chains) == 0 {
		return ""
	}
	return chains[0].Title
}

func latestTimestamp(chains []store.ReasoningChain) int64 {
	if len(chains) == 0 {
		return 0
	}
	return chains[0].TimestampEpochMs
}

func buildRelatedObservationsSection(results []store.ObservationRow, nowMs int64) section {
	inline := func() string {
		var b strings.Builder
		b.WriteString("## Related Observations\n")
		for _, o := range results {
			b.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", o.Title, FormatRelativeTime(o.TimestampEpochMs, nowMs), truncate(o.Content, 200)))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	ref := func() string {
		if len(results) == 0 {
			return "## Related Observations\n(no matches)"
		}
		return fmt.Sprintf("## Related Observations\n%d matches, latest: \"%s\" (%s)",
			len(results), results[0].Title, FormatRelativeTime(results[0].TimestampEpochMs, nowMs))
	}
	return section{tag: "fts5", present: len(results) > 0, inline: inline, ref: ref}
}

func buildRecentActivitySection(recent []store.ObservationRow, nowMs int64) section {
	inline := func() string {
		var b strings.Builder
		b.WriteString("## Recent Activity\n")
		for _, o := range recent {
			b.WriteString(fmt.Sprintf("- **%s** (%s)\n", o.Title, FormatRelativeTime(o.TimestampEpochMs, nowMs)))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	ref := func() string {
		if len(recent) == 0 {
			return "## Recent Activity\n(none)"
		}
		return fmt.Sprintf("## Recent Activity\n%d observations, latest: \"%s\" (%s)",
			len(recent), recent[0].Title, FormatRelativeTime(recent[0].TimestampEpochMs, nowMs))
	}
	return section{tag: "recency", present: len(recent) > 0, inline: inline, ref: ref}
}

func buildWarmContextSection(warm []WarmFile) section {
	inline := func() string {
		var b strings.Builder
		b.WriteString("## Warm Context\n")
		for _, w := range warm {
			b.WriteString(fmt.Sprintf("- `%s` — WARM (pressure: %.2f)\n", w.Path, w.RawPressure))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	ref := func() string {
		if len(warm) == 0 {
			return "## Warm Context\n(none)"
		}
		top := warm[0]
		for _, w := range warm {
			if w.RawPressure > top.RawPressure {
				top = w
			}
		}
		return fmt.Sprintf("## Warm Context\n%d files, top: `%s` (pressure: %.2f)", len(warm), top.Path, top.RawPressure)
	}
	return section{tag: "warm", present: len(warm) > 0, inline: inline, ref: ref}
}

func buildConsensusSection(decisions []store.ConsensusDecision, nowMs int64) section {
	inline := func() string {
		var b strings.Builder
		b.WriteString("## Consensus Decisions\n")
		for _, d := range decisions {
			b.WriteString(fmt.Sprintf("- **%s** [%s] (%s): %s\n", d.Title, d.Status, FormatRelativeTime(d.TimestampEpochMs, nowMs), d.Description))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	ref := func() string {
		if len(decisions) == 0 {
			return "## Consensus Decisions\n(none)"
		}
		return fmt.Sprintf("## Consensus Decisions\n%d decisions, latest: \"%s\" (%s)",
			len(decisions), decisions[0].Title, FormatRelativeTime(decisions[0].TimestampEpochMs, nowMs))
	}
	return section{tag: "consensus", present: len(decisions) > 0, inline: inline, ref: ref}
}

func buildSessionContinuitySection(sc *SessionContinuity) section {
	render := func() string {
		var b strings.Builder
		b.WriteString("## Session Continuity\n" + sc.Summary + "\n")
		for _, d := range sc.RecentDecisions {
			b.WriteString("- " + d + "\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return section{tag: "session", alwaysInline: true, present: sc != nil, inline: render, ref: render}
}

func refSummary(title string, count int, latest string, nowMs, latestTs int64) string {
	if count == 0 {
		return "## " + title + "\n(none)"
	}
	return fmt.Sprintf("## %s\n%d entries, latest: \"%s\" (%s)", title, count, latest, FormatRelativeTime(latestTs, nowMs))
}
