package assembler

import (
	"strings"

	"claudex/internal/redact"
)

const refSwitchThreshold = 500

// Assemble renders sources into a single markdown block within
// maxTokens, following the priority order and two-mode (inline/ref)
// rendering rule, then passes the result once through the Redactor's
// assembly-output entry point.
func Assemble(src ContextSources, maxTokens int, nowMs int64) Output {
	sections := []section{
		buildHeaderSection(),
		buildIdentitySection(src.Identity),
		buildProjectSection(src.ProjectContext),
		buildActiveFocusSection(src.Hologram),
		buildGSDSection(src.GSDState),
		buildFlowReasoningSection(src.ReasoningChains, nowMs),
		buildRelatedObservationsSection(src.SearchResults, nowMs),
		buildRecentActivitySection(src.RecentObservations, nowMs),
		buildWarmContextSection(src.WarmFiles),
		buildConsensusSection(src.ConsensusDecisions, nowMs),
	}
	if src.PostCompaction != nil {
		sections = append(sections, buildSessionContinuitySection(src.PostCompaction))
	}

	remaining := maxTokens
	var rendered []string
	var sources []string
	refModeTriggered := false

	// Search reservation: if FTS has results but Warm Context would
	// consume the budget before FTS fits, trim Warm Context first —
	// HOT and Identity are never trimmed.
	hasFTSResults := len(src.SearchResults) > 0

	for _, sec := range sections {
		if !sec.present {
			continue
		}

		text := sec.inline()
		cost := EstimateTokens(text) + 1 // +1 for the inter-section newline

		// Two-mode rendering: the section whose inline form would leave
		// fewer than 500 tokens switches to its reference form, and so
		// does every ref-eligible section after it.
		if !sec.alwaysInline && (refModeTriggered || remaining-cost < refSwitchThreshold) {
			refModeTriggered = true
			text = sec.ref()
			cost = EstimateTokens(text) + 1
		}

		if sec.tag == "warm" && hasFTSResults && remaining-cost < 0 {
			// trim Warm Context down to its reference form rather than
			// letting it collide with the FTS reservation
			text = sec.ref()
			cost = EstimateTokens(text) + 1
		}

		if remaining-cost < 0 {
			continue
		}

		rendered = append(rendered, text)
		remaining -= cost
		sources = append(sources, sec.tag)
	}

	markdown := strings.Join(rendered, "\n\n")
	markdown = redact.AssemblyOutput(markdown)

	return Output{
		Markdown:      markdown,
		TokenEstimate: EstimateTokens(markdown),
		Sources:       dedupSources(sources),
	}
}

// nonSourceTags are sections that render markdown but are not part of
// the documented sources enumeration (identity|project|
// hologram|fts5|recency|reasoning|consensus|session|gsd). Warm Context
// is reported under "hologram" since both ultimately derive from the
// same pressure-scored file set.
var nonSourceTags = map[string]bool{"header": true}

func dedupSources(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		if t == "warm" {
			t = "hologram"
		}
		if nonSourceTags[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
