// Package recovery runs the session-start self-heal pass: five
// independent checks (database integrity, stale sidecar port marker,
// stale flush-cooldown marker, orphaned sessions, FTS health), each
// isolated so one check's failure never prevents the others from
// running. Non-fatal per-check errors accumulate via multierr into a
// single reportable value.
package recovery

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"claudex/internal/logging"
	"claudex/internal/sidecar"
	"claudex/internal/store"
)

// Status enumerates a single check's outcome.
type Status string

const (
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusRecovered Status = "recovered"
	StatusFailed    Status = "failed"
)

// CheckResult is one Recovery Pass finding.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
}

// Report is the accumulated result of a full Recovery Pass.
type Report struct {
	Checks []CheckResult
	Err    error // multierr-joined non-fatal errors, for the caller's WARN log
}

const (
	portFileStaleAfter     = 24 * time.Hour
	cooldownFileStaleAfter = 1 * time.Hour
	orphanSessionAfter     = 12 * time.Hour
	portPingTimeout        = 1 * time.Second
)

// Run executes all five checks and returns their combined report. No
// check's error prevents the others from running (a panic inside a
// check is not recovered and ends the pass); Run itself
// never returns an error — failures are reported per-check in Checks
// and jointly in Err for a single outermost WARN log line.
func Run(s *store.Store, portFile, cooldownFile string, now time.Time) Report {
	var report Report
	var errs error

	add := func(r CheckResult, err error) {
		report.Checks = append(report.Checks, r)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Name, err))
		}
	}

	add(checkDBIntegrity(s))
	add(checkStalePortFile(portFile, now))
	add(checkStaleCooldownFile(cooldownFile, now))
	add(checkOrphanSessions(s, now))
	add(checkFTSHealth(s))

	report.Err = errs
	if errs != nil {
		logging.Get(logging.CategoryRecovery).Warn("recovery pass completed with findings: %v", errs)
	}
	for _, c := range report.Checks {
		if c.Status == StatusRecovered {
			s.LogAudit("recovery."+c.Name, c.Message)
		}
	}
	return report
}

func checkDBIntegrity(s *store.Store) (CheckResult, error) {
	const name = "db-integrity"
	result, err := s.IntegrityCheck()
	if err != nil {
		return CheckResult{Name: name, Status: StatusFailed, Message: err.Error()}, err
	}
	if result != "ok" {
		return CheckResult{Name: name, Status: StatusWarning, Message: result}, nil
	}
	return CheckResult{Name: name, Status: StatusOK, Message: "ok"}, nil
}

// checkStalePortFile TCP-pings the sidecar port advertised by a marker
// older than 24h; the marker is deleted only when the port is
// unreachable, since a live sidecar just hasn't rotated its marker yet.
func checkStalePortFile(portFile string, now time.Time) (CheckResult, error) {
	const name = "stale-sidecar-port"
	info, err := os.Stat(portFile)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Name: name, Status: StatusOK, Message: "no marker"}, nil
		}
		return CheckResult{Name: name, Status: StatusWarning, Message: err.Error()}, nil
	}

	if now.Sub(info.ModTime()) < portFileStaleAfter {
		return CheckResult{Name: name, Status: StatusOK, Message: "fresh"}, nil
	}

	port, err := sidecar.ReadPort(portFile)
	if err != nil {
		_ = os.Remove(portFile)
		return CheckResult{Name: name, Status: StatusRecovered, Message: "removed unreadable stale marker"}, nil
	}

	if pingPort(port) {
		return CheckResult{Name: name, Status: StatusOK, Message: "stale marker but port still live"}, nil
	}

	if err := os.Remove(portFile); err != nil && !os.IsNotExist(err) {
		return CheckResult{Name: name, Status: StatusFailed, Message: err.Error()}, err
	}
	return CheckResult{Name: name, Status: StatusRecovered, Message: "removed stale unreachable port marker"}, nil
}

func pingPort(port int) bool {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), portPingTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// checkStaleCooldownFile deletes the flush-cooldown marker when it is
// older than 1h, when its timestamp sits further than 1h in the future
// (clock skew / corruption), or when its content isn't a finite
// non-negative integer at all.
func checkStaleCooldownFile(cooldownFile string, now time.Time) (CheckResult, error) {
	const name = "stale-flush-cooldown"
	data, err := os.ReadFile(cooldownFile)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Name: name, Status: StatusOK, Message: "no marker"}, nil
		}
		return CheckResult{Name: name, Status: StatusWarning, Message: err.Error()}, nil
	}

	raw := strings.TrimSpace(string(data))
	epochMs, parseErr := strconv.ParseInt(raw, 10, 64)
	nowMs := now.UnixMilli()

	stale := parseErr != nil || epochMs < 0
	if !stale {
		age := nowMs - epochMs
		if age > cooldownFileStaleAfter.Milliseconds() {
			stale = true
		}
		if -age > cooldownFileStaleAfter.Milliseconds() {
			stale = true // timestamp far in the future
		}
	}

	if !stale {
		return CheckResult{Name: name, Status: StatusOK, Message: "fresh"}, nil
	}

	if err := os.Remove(cooldownFile); err != nil && !os.IsNotExist(err) {
		return CheckResult{Name: name, Status: StatusFailed, Message: err.Error()}, err
	}
	return CheckResult{Name: name, Status: StatusRecovered, Message: "removed stale cooldown marker"}, nil
}

func checkOrphanSessions(s *store.Store, now time.Time) (CheckResult, error) {
	const name = "orphan-sessions"
	cutoff := now.Add(-orphanSessionAfter).UnixMilli()
	ids, err := s.OrphanSessions(cutoff)
	if err != nil {
		return CheckResult{Name: name, Status: StatusFailed, Message: err.Error()}, err
	}
	if len(ids) == 0 {
		return CheckResult{Name: name, Status: StatusOK, Message: "none"}, nil
	}

	var failedClose []string
	for _, id := range ids {
		if err := s.UpdateSessionStatus(id, store.SessionFailed, now.UnixMilli()); err != nil {
			failedClose = append(failedClose, id)
		}
	}
	if len(failedClose) > 0 {
		return CheckResult{
			Name:    name,
			Status:  StatusWarning,
			Message: fmt.Sprintf("closed %d of %d orphan sessions", len(ids)-len(failedClose), len(ids)),
		}, nil
	}
	return CheckResult{Name: name, Status: StatusRecovered, Message: fmt.Sprintf("closed %d orphan session(s)", len(ids))}, nil
}

func checkFTSHealth(s *store.Store) (CheckResult, error) {
	const name = "fts-health"
	if s.FTSHealthy() {
		return CheckResult{Name: name, Status: StatusOK, Message: "ok"}, nil
	}

	if err := s.RebuildFTS(); err != nil {
		return CheckResult{Name: name, Status: StatusFailed, Message: err.Error()}, err
	}
	return CheckResult{Name: name, Status: StatusRecovered, Message: "rebuilt FTS index"}, nil
}
