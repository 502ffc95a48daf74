package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"claudex/internal/hookio"
	"claudex/internal/redact"
	"claudex/internal/store"
	"claudex/internal/thread"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Decision/Thread Detector: rate-limited nudge to record a decision after unrecorded file churn",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventStop, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.StopInput)

		signals, err := thread.ReadTailSignals(in.TranscriptPath)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		recordDecision(in, signals)

		result, err := thread.EvaluateNudge(sessionDir(in.SessionID), signals.FileModifyCount, signals.DecisionCount)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		if !result.ShouldNudge {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		fmt.Println(mustJSON(hookio.WithContext(hookio.EventStop, result.Message)))
		return nil
	},
}

// recordDecision persists this turn's user decision signal, if any, as
// a ConsensusDecision row. The latest user text in the tail belongs to
// the turn that just stopped, so at most one row is written per turn.
func recordDecision(in hookio.StopInput, signals thread.TranscriptSignals) {
	if signals.LatestUserText == "" {
		return
	}
	sig := thread.DetectDecisionSignal(signals.LatestUserText)
	if sig == nil {
		return
	}

	s, err := store.Open(rtCtx.Paths.DBPath())
	if err != nil {
		return
	}
	defer s.Close()

	status := store.ConsensusAgreed
	if sig.Type == thread.SignalRejection {
		status = store.ConsensusRejected
	}

	text := redact.Full(signals.LatestUserText)
	title := text
	if len(title) > 80 {
		title = title[:79] + "…"
	}

	project := in.Cwd
	var projectPtr *string
	if project != "" {
		projectPtr = &project
	}
	s.InsertConsensus(store.ConsensusDecision{
		SessionID:        in.SessionID,
		Project:          projectPtr,
		TimestampEpochMs: nowMillis(),
		Title:            title,
		Description:      text,
		Status:           status,
		Verdict:          string(sig.Type),
	})
}
