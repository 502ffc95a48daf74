package sidecar

import (
	"fmt"
	"time"

	"claudex/internal/claudexerr"
	"claudex/internal/logging"
	"claudex/internal/store"
)

// SourceHologram etc. are the `source` tags QueryWithFallback reports,
// one per tier of its three-tier degradation.
const (
	SourceHologram       = "hologram"
	SourceDBPressure     = "db-pressure"
	SourceRecencyFallback = "recency-fallback"
)

// QueryParams bundles the inputs to QueryWithFallback.
type QueryParams struct {
	Prompt       string
	Session      string
	RecentFiles  []string
	Project      string
	ProjectDir   string
	BoostFiles   []string
	PortFile     string
}

// QueryWithFallback implements the three-tier resilient query: sidecar,
// then persisted pressure scores, then bare recency.
func QueryWithFallback(client *Client, s *store.Store, p QueryParams) QueryResult {
	if port, err := ReadPort(p.PortFile); err == nil {
		req := Request{
			ID:   newRequestID(),
			Type: "query",
			Payload: QueryPayload{
				Prompt:      p.Prompt,
				Session:     p.Session,
				RecentFiles: p.RecentFiles,
				Project:     p.Project,
				ProjectDir:  p.ProjectDir,
				BoostFiles:  p.BoostFiles,
			},
		}
		resp, err := client.Query(port, req)
		if err == nil {
			var result QueryResult
			jsonErr := decodePayload(resp.Payload, &result)
			if jsonErr == nil {
				result.Source = SourceHologram
				return result
			}
			logging.Get(logging.CategorySidecar).Warn("sidecar payload decode failed: %v", jsonErr)
		} else {
			logging.Get(logging.CategorySidecar).Warn("sidecar unreachable, degrading: %v", err)
		}
	}

	if s != nil {
		scores := s.GetPressureScores(p.Project)
		if len(scores) > 0 {
			return synthesizeFromPressure(scores)
		}
	}

	cold := make([]ScoredFile, 0, len(p.RecentFiles))
	for _, f := range p.RecentFiles {
		cold = append(cold, ScoredFile{Path: f, Temperature: string(store.TemperatureCold)})
	}
	return QueryResult{Cold: cold, Source: SourceRecencyFallback}
}

func synthesizeFromPressure(scores []store.PressureScore) QueryResult {
	var result QueryResult
	result.Source = SourceDBPressure
	for _, sc := range scores {
		sf := ScoredFile{Path: sc.FilePath, RawPressure: sc.RawPressure, Temperature: string(sc.Temperature)}
		switch sc.Temperature {
		case store.TemperatureHot:
			result.Hot = append(result.Hot, sf)
		case store.TemperatureWarm:
			result.Warm = append(result.Warm, sf)
		default:
			result.Cold = append(result.Cold, sf)
		}
	}
	return result
}

const (
	boostWindow        = 30 * time.Minute
	maxBoostTurnCount  = 3
)

// BoostFilesForSession implements the post-compact active-file boost
// read: if CheckpointState.active_files is non-empty, fresh (< 30 min
// old), and the session hasn't exhausted its 3-turn boost budget, its
// files are returned to be attached as boostFiles on the next query.
func BoostFilesForSession(cs *store.CheckpointState, now time.Time) []string {
	if cs == nil || len(cs.ActiveFiles) == 0 {
		return nil
	}
	if now.UnixMilli()-cs.LastEpoch >= boostWindow.Milliseconds() {
		return nil
	}
	if cs.BoostTurnCount >= maxBoostTurnCount {
		return nil
	}
	return cs.ActiveFiles
}

// CommitBoostTurn persists boost_turn_count+1 — called only after the
// sidecar actually answers with source=hologram; fallback sources must
// not consume a boost turn.
func CommitBoostTurn(s *store.Store, sessionID string, cs *store.CheckpointState, now time.Time) error {
	if cs == nil {
		return claudexerr.New(claudexerr.KindStoreIntegrityFailure, "sidecar.CommitBoostTurn", errNoCheckpoint)
	}
	return s.UpdateBoostState(sessionID, now.UnixMilli(), cs.BoostTurnCount+1)
}

var errNoCheckpoint = fmt.Errorf("no checkpoint state for session")
