package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudex/internal/store"
)

func TestEstimateTokensCeiling(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"), "expected ceil division")
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestFormatRelativeTimeBuckets(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		deltaMs int64
		want    string
	}{
		{30 * 1000, "just now"},
		{5 * 60 * 1000, "5m ago"},
		{3 * 3600 * 1000, "3h ago"},
		{2 * 86400 * 1000, "2d ago"},
	}
	for _, c := range cases {
		got := FormatRelativeTime(now-c.deltaMs, now)
		assert.Equalf(t, c.want, got, "delta=%d", c.deltaMs)
	}
}

func TestAssembleTokenCeilingNotExceeded(t *testing.T) {
	src := ContextSources{
		Identity: "claudex assistant",
		SearchResults: []store.ObservationRow{
			{Title: "found bug", Content: "off by one error in loop", TimestampEpochMs: 500},
		},
		WarmFiles: []WarmFile{{Path: "utils.go", RawPressure: 0.5}},
	}

	out := Assemble(src, 50, 1000)

	require.LessOrEqual(t, out.TokenEstimate, 50)
	assert.Contains(t, out.Markdown, "Identity", "expected identity section always inline and present")
	assert.False(t, strings.HasSuffix(strings.TrimSpace(out.Markdown), "..."), "markdown should not end truncated mid-section")
}

func TestAssembleHotFileRenderingWithPhaseBoostMarker(t *testing.T) {
	src := ContextSources{
		Hologram: []HotFile{
			{Path: "main.go", RawPressure: 0.83, PhaseBoosted: true},
			{Path: "util.go", RawPressure: 0.71, PhaseBoosted: false},
		},
	}
	out := Assemble(src, 2000, 1000)

	assert.Contains(t, out.Markdown, "`main.go` — HOT (pressure: 0.83) [phase]")
	assert.NotContains(t, out.Markdown, "`util.go` — HOT (pressure: 0.71) [phase]", "util.go should not carry phase marker")
}

func TestAssembleSourcesEnumeratesContributingSections(t *testing.T) {
	src := ContextSources{
		Identity: "id",
		ConsensusDecisions: []store.ConsensusDecision{
			{Title: "use postgres", Status: store.ConsensusAgreed, TimestampEpochMs: 100},
		},
	}
	out := Assemble(src, 2000, 1000)

	assert.Contains(t, out.Sources, "identity")
	assert.Contains(t, out.Sources, "consensus")
}

func TestAssembleRedactsSecretsInRenderedMarkdown(t *testing.T) {
	src := ContextSources{
		SearchResults: []store.ObservationRow{
			{Title: "config", Content: "api_key=sk-ABCDEFGHIJ1234567890", TimestampEpochMs: 100},
		},
	}
	out := Assemble(src, 2000, 1000)
	assert.NotContains(t, out.Markdown, "sk-ABCDEFGHIJ1234567890", "expected secret redacted from assembled markdown")
}
