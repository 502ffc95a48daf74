// Package pressure holds the pressure-engine operations that sit above
// the store's raw accumulate/decay primitives: the per-query phase
// boost that favors files named in the active development phase,
// applied as a flat multiplier over PressureScore rows.
package pressure

import (
	"sort"

	"claudex/internal/store"
)

const (
	activeBoostMultiplier = 1.4
	otherBoostMultiplier  = 1.2
	noBoostMultiplier     = 1.0
)

// Boosted pairs a PressureScore with whether this call raised it.
type Boosted struct {
	store.PressureScore
	PhaseBoosted bool
}

// ApplyPhaseBoost raises raw_pressure for files named in the active or
// other development phases, then reclassifies temperature and returns
// every score sorted by raw_pressure descending — boost may promote a
// file across a temperature tier, and ranking must reflect that.
func ApplyPhaseBoost(scores []store.PressureScore, activePlanFiles, otherPlanFiles map[string]bool) []Boosted {
	out := make([]Boosted, 0, len(scores))
	for _, s := range scores {
		mult := noBoostMultiplier
		switch {
		case activePlanFiles[s.FilePath]:
			mult = activeBoostMultiplier
		case otherPlanFiles[s.FilePath]:
			mult = otherBoostMultiplier
		}

		boosted := mult > 1.0
		raw := s.RawPressure
		if boosted {
			raw = s.RawPressure * mult
			if raw > 1.0 {
				raw = 1.0
			}
		}
		s.RawPressure = raw
		s.Temperature = store.ClassifyTemperature(raw)
		s.DecayRate = store.DecayRateFor(s.Temperature)

		out = append(out, Boosted{PressureScore: s, PhaseBoosted: boosted})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RawPressure > out[j].RawPressure
	})
	return out
}

// DedupPlanFiles applies the dedup rule: a file named in both active
// and other plans belongs to active only.
func DedupPlanFiles(active, other map[string]bool) (map[string]bool, map[string]bool) {
	dedupedOther := make(map[string]bool, len(other))
	for f := range other {
		if !active[f] {
			dedupedOther[f] = true
		}
	}
	return active, dedupedOther
}
