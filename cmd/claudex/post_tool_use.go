package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"claudex/internal/hookio"
	"claudex/internal/observation"
	"claudex/internal/pruner"
	"claudex/internal/store"
)

// readAccumDelta and modifyAccumDelta are the per-touch pressure
// accumulation deltas applied when an observation names a file: a file
// this turn wrote or edited outweighs one it merely read, scaled by
// the observation's own importance.
const (
	readAccumDelta   = 0.03
	modifyAccumDelta = 0.12
)

var postToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Observation Extractor: persist one tool call as an Observation row",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		input, err := hookio.Parse(hookio.EventPostToolUse, raw)
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		in := input.(hookio.PostToolUseInput)

		now := rtCtx.Clock.Now()
		obs := observation.Extract(in, now, in.Cwd)
		if obs == nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}

		s, err := store.Open(rtCtx.Paths.DBPath())
		if err != nil {
			fmt.Println(mustJSON(hookio.Empty()))
			return nil
		}
		defer s.Close()

		project := in.Cwd
		s.StoreObservation(*obs, &project)

		nowMs := now.UnixMilli()
		importanceScale := float64(obs.Importance) / 3.0
		for _, path := range obs.FilesRead {
			_ = s.AccumulatePressureScore(path, project, readAccumDelta*importanceScale, nowMs)
		}
		for _, path := range obs.FilesModified {
			_ = s.AccumulatePressureScore(path, project, modifyAccumDelta*importanceScale, nowMs)
		}

		pruner.Run(s, project, nowMs)

		fmt.Println(mustJSON(hookio.Empty()))
		return nil
	},
}
