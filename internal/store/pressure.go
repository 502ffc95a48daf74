package store

import (
	"database/sql"
	"math"

	"claudex/internal/logging"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func projectOrGlobal(project string) string {
	if project == "" {
		return GlobalProject
	}
	return project
}

// UpsertPressureScore writes (or overwrites) a PressureScore row
// wholesale, as used by sidecar-response ingestion.
func (s *Store) UpsertPressureScore(ps PressureScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project := projectOrGlobal(ps.Project)
	raw := clamp01(ps.RawPressure)
	temp := ClassifyTemperature(raw)
	rate := DecayRateFor(temp)

	_, err := s.db.Exec(
		`INSERT INTO pressure_scores (file_path, project, raw_pressure, temperature, decay_rate, last_accessed_epoch, last_decay_epoch)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path, project) DO UPDATE SET
		   raw_pressure = excluded.raw_pressure,
		   temperature = excluded.temperature,
		   decay_rate = excluded.decay_rate,
		   last_accessed_epoch = excluded.last_accessed_epoch,
		   last_decay_epoch = excluded.last_decay_epoch`,
		ps.FilePath, project, raw, string(temp), rate, ps.LastAccessedEpoch, nullableInt64(ps.LastDecayEpoch),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("UpsertPressureScore failed: %v", err)
		logAuditErr(s, "UpsertPressureScore", ps.FilePath, err)
		return err
	}
	return nil
}

// AccumulatePressureScore applies the accumulation rule: raw :=
// clamp01(raw + delta); recompute temperature; touch
// last_accessed_epoch; insert the row if missing with raw = clamp(delta).
func (s *Store) AccumulatePressureScore(path, project string, delta float64, nowEpochMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := projectOrGlobal(project)

	var raw float64
	err := s.db.QueryRow(`SELECT raw_pressure FROM pressure_scores WHERE file_path = ? AND project = ?`, path, proj).Scan(&raw)
	if err == sql.ErrNoRows {
		raw = clamp01(delta)
	} else if err != nil {
		logging.Get(logging.CategoryStore).Error("AccumulatePressureScore read failed: %v", err)
		logAuditErr(s, "AccumulatePressureScore", path, err)
		return err
	} else {
		raw = clamp01(raw + delta)
	}

	temp := ClassifyTemperature(raw)
	rate := DecayRateFor(temp)

	_, err = s.db.Exec(
		`INSERT INTO pressure_scores (file_path, project, raw_pressure, temperature, decay_rate, last_accessed_epoch)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path, project) DO UPDATE SET
		   raw_pressure = excluded.raw_pressure,
		   temperature = excluded.temperature,
		   decay_rate = excluded.decay_rate,
		   last_accessed_epoch = excluded.last_accessed_epoch`,
		path, proj, raw, string(temp), rate, nowEpochMs,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("AccumulatePressureScore write failed: %v", err)
		logAuditErr(s, "AccumulatePressureScore", path, err)
		return err
	}
	return nil
}

const pressureColumns = `file_path, project, raw_pressure, temperature, decay_rate, last_accessed_epoch, last_decay_epoch`

func scanPressure(rows *sql.Rows) (PressureScore, error) {
	var p PressureScore
	var temp string
	var lastDecay sql.NullInt64
	err := rows.Scan(&p.FilePath, &p.Project, &p.RawPressure, &temp, &p.DecayRate, &p.LastAccessedEpoch, &lastDecay)
	if err != nil {
		return p, err
	}
	p.Temperature = Temperature(temp)
	p.LastDecayEpoch = ptrFromNullInt64(lastDecay)
	return p, nil
}

// GetPressureScores returns every PressureScore row scoped to project
// ("" = global sentinel).
func (s *Store) GetPressureScores(project string) []PressureScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT `+pressureColumns+` FROM pressure_scores WHERE project = ?`, projectOrGlobal(project))
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("GetPressureScores failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []PressureScore
	for rows.Next() {
		p, err := scanPressure(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetHotFiles returns HOT-temperature rows for project, sorted by
// raw_pressure descending.
func (s *Store) GetHotFiles(project string) []PressureScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT `+pressureColumns+` FROM pressure_scores WHERE project = ? AND temperature = ? ORDER BY raw_pressure DESC`,
		projectOrGlobal(project), string(TemperatureHot),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("GetHotFiles failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []PressureScore
	for rows.Next() {
		p, err := scanPressure(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DecayAllScores applies the stratified decay law to every row whose
// (now - last_decay_epoch) >= minIntervalMs, or whose last_decay_epoch
// is unset. The idempotency guard is last_decay_epoch itself: a row
// decayed this tick is skipped on a repeat call within the interval.
// Scoped to project when non-empty, else applies across every project.
func (s *Store) DecayAllScores(project string, nowEpochMs, minIntervalMs int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + pressureColumns + ` FROM pressure_scores WHERE (last_decay_epoch IS NULL OR ? - last_decay_epoch >= ?)`
	args := []interface{}{nowEpochMs, minIntervalMs}
	if project != "" {
		query += ` AND project = ?`
		args = append(args, projectOrGlobal(project))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("DecayAllScores query failed: %v", err)
		return 0, err
	}

	var toUpdate []PressureScore
	for rows.Next() {
		p, err := scanPressure(rows)
		if err != nil {
			continue
		}
		toUpdate = append(toUpdate, p)
	}
	rows.Close()

	decayed := 0
	for _, p := range toUpdate {
		// Δdays is measured since the row's last decay application, not
		// since its last access: a row decayed once and left untouched
		// must not have its elapsed time double-counted against the
		// original access timestamp on every subsequent decay pass.
		baseline := p.LastAccessedEpoch
		if p.LastDecayEpoch != nil {
			baseline = *p.LastDecayEpoch
		}
		deltaDays := float64(nowEpochMs-baseline) / (1000 * 60 * 60 * 24)
		if deltaDays < 0 {
			deltaDays = 0
		}
		newRaw := clamp01(p.RawPressure * math.Exp(-p.DecayRate*deltaDays))
		temp := ClassifyTemperature(newRaw)
		rate := DecayRateFor(temp)

		_, err := s.db.Exec(
			`UPDATE pressure_scores SET raw_pressure = ?, temperature = ?, decay_rate = ?, last_decay_epoch = ? WHERE file_path = ? AND project = ?`,
			newRaw, string(temp), rate, nowEpochMs, p.FilePath, p.Project,
		)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("DecayAllScores update failed for %s: %v", p.FilePath, err)
			continue
		}
		decayed++
	}
	return decayed, nil
}
