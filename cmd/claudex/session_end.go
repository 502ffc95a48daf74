package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"claudex/internal/hookio"
	"claudex/internal/store"
)

// minDecayIntervalMs is the idempotency guard stratified decay uses: a
// score already decayed within this window is skipped.
const minDecayIntervalMs = 60 * 60 * 1000 // 1 hour

// auditRetentionMs bounds how long audit_log rows are kept; SessionEnd
// is the natural point to sweep it since it already touches the store
// once per session lifecycle.
const auditRetentionMs = 30 * 24 * 60 * 60 * 1000 // 30 days

var sessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Pressure/Decay Engine: stratified decay, close the session, sweep old audit rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventSessionEnd, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.SessionEndInput)

		s, err := store.Open(rtCtx.Paths.DBPath())
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		defer s.Close()

		now := nowMillis()
		project := in.Cwd

		if _, err := s.DecayAllScores(project, now, minDecayIntervalMs); err != nil {
			fmt.Fprintf(stderrWriter, "warning: DecayAllScores failed: %v\n", err)
		}

		if err := s.UpdateSessionStatus(in.SessionID, store.SessionCompleted, now); err != nil {
			fmt.Fprintf(stderrWriter, "warning: UpdateSessionStatus failed: %v\n", err)
		}

		s.CleanOldAuditLogs(now - auditRetentionMs)

		fmt.Println(mustJSON(hookio.Empty()))
		return nil
	},
}
