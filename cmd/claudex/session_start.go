package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"claudex/internal/hookio"
	"claudex/internal/recovery"
	"claudex/internal/store"
)

var sessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Recovery Pass: self-heal stale markers and orphan sessions, then open the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventSessionStart, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.SessionStartInput)

		s, err := store.Open(rtCtx.Paths.DBPath())
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		defer s.Close()

		now := rtCtx.Clock.Now()
		recovery.Run(s, rtCtx.Paths.HologramPortFile(), rtCtx.Paths.FlushCooldownFile(), now)

		if err := s.CreateSession(store.Session{
			SessionID:      in.SessionID,
			Scope:          projectScope(in.Cwd),
			Cwd:            in.Cwd,
			StartedAtEpoch: now.UnixMilli(),
			Status:         store.SessionActive,
		}); err != nil {
			fmt.Fprintf(stderrWriter, "warning: CreateSession failed: %v\n", err)
		}

		fmt.Println(mustJSON(hookio.Empty()))
		return nil
	},
}
