// Package pruner keeps the observation table bounded: when the
// non-deleted count crosses a threshold, the lowest-scoring non-immune
// rows are soft-deleted in a capped batch, ranked by an
// eviction-importance score combining importance, access history,
// age decay, and file co-occurrence.
package pruner

import (
	"math"
	"sort"

	"claudex/internal/logging"
	"claudex/internal/store"
)

const (
	observationCountThreshold = 1000
	maxPrunePerPass            = 50
	immuneMinImportance        = 5
	immuneMinAccessCount       = 3
	immuneAccessWindowDays     = 180
)

var baseWeight = map[int]float64{1: 0.2, 2: 0.4, 3: 0.6, 4: 0.8, 5: 1.0}

var halfLifeDays = map[int]float64{1: 7, 2: 14, 3: 60, 4: 90, 5: 365}

// Result reports the outcome of one pruning pass.
type Result struct {
	Pruned    int
	Remaining int
}

// scored pairs a prunable observation with its computed EI.
type scored struct {
	id int64
	ei float64
}

// Run scores every non-deleted observation's eviction importance and
// soft-deletes the lowest-EI non-immune batch (at most 50 rows) when
// the project's non-deleted count exceeds 1000.
func Run(s *store.Store, project string, nowEpochMs int64) Result {
	total := s.NonDeletedCount(project)
	if total <= observationCountThreshold {
		return Result{Pruned: 0, Remaining: total}
	}

	candidates := s.ListPrunable(project)
	var scoredRows []scored
	for _, c := range candidates {
		if isImmune(c, nowEpochMs) {
			continue
		}
		conn := s.CoOccurrenceCount(c.ID)
		ei := eviction(c, conn, nowEpochMs)
		scoredRows = append(scoredRows, scored{id: c.ID, ei: ei})
	}

	sort.Slice(scoredRows, func(i, j int) bool { return scoredRows[i].ei < scoredRows[j].ei })

	n := maxPrunePerPass
	if n > len(scoredRows) {
		n = len(scoredRows)
	}
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, scoredRows[i].id)
	}

	pruned := s.SoftDelete(ids, nowEpochMs)
	logging.Get(logging.CategoryPruner).Info("pruned %d of %d candidates (total=%d)", pruned, len(scoredRows), total)

	return Result{Pruned: pruned, Remaining: total - pruned}
}

func isImmune(o store.PrunableObservation, nowEpochMs int64) bool {
	if o.Importance >= immuneMinImportance {
		return true
	}
	daysSinceAccess := float64(nowEpochMs-o.LastAccessedEpoch) / (1000 * 60 * 60 * 24)
	if o.AccessCount >= immuneMinAccessCount && daysSinceAccess < immuneAccessWindowDays {
		return true
	}
	return false
}

func eviction(o store.PrunableObservation, coOccurrence int, nowEpochMs int64) float64 {
	base := baseWeight[o.Importance]
	if base == 0 {
		base = baseWeight[3]
	}
	access := math.Max(1, math.Log(1+float64(o.AccessCount)))

	halfLife := halfLifeDays[o.Importance]
	if halfLife == 0 {
		halfLife = halfLifeDays[3]
	}
	daysSince := float64(nowEpochMs-o.LastAccessedEpoch) / (1000 * 60 * 60 * 24)
	if daysSince < 0 {
		daysSince = 0
	}
	decay := math.Pow(2, -daysSince/halfLife)

	conn := 1 + 0.1*math.Min(5, float64(coOccurrence))

	return base * access * decay * conn
}
