package assembler

import "claudex/internal/store"

// HotFile is one Active Focus entry: a sidecar hot-list path joined
// with its PressureScore metadata.
type HotFile struct {
	Path         string
	RawPressure  float64
	PhaseBoosted bool
}

// WarmFile is one Warm Context entry.
type WarmFile struct {
	Path        string
	RawPressure float64
}

// GSDState is the rendered input to the GSD Project Phase section.
type GSDState struct {
	Phase            int
	TotalPhases      int
	PhaseGoal        string
	SuccessCriteria  []string
	MustHaves        []string
	RequirementDone  int
	RequirementTotal int
	HasRequirements  bool
}

// ContextSources bundles every optional input the assembler may render.
type ContextSources struct {
	Identity          string
	ProjectContext    string
	Hologram          []HotFile
	SearchResults     []store.ObservationRow
	RecentObservations []store.ObservationRow
	ReasoningChains   []store.ReasoningChain
	ConsensusDecisions []store.ConsensusDecision
	GSDState          *GSDState
	Scope             string
	PostCompaction    *SessionContinuity
	WarmFiles         []WarmFile
}

// SessionContinuity is the post-compact-only Session Continuity section
// input.
type SessionContinuity struct {
	Summary        string
	RecentDecisions []string
}

// Output is the assembler's final product: {markdown, tokenEstimate,
// sources}.
type Output struct {
	Markdown     string
	TokenEstimate int
	Sources      []string
}
