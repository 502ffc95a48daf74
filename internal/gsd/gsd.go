// Package gsd is a tolerant Markdown reader over a project's
// .planning/ tree, plus the phase-relevance set computation that feeds
// the phase boost and the assembled GSD section. The files it reads
// are edited by hand (or by another tool), so every read here accepts
// two authoring styles and degrades to the zero value instead of
// failing loudly.
package gsd

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// State is the parsed .planning/STATE.md pointer: which phase and plan
// are currently active.
type State struct {
	ActivePhase float64
	ActivePlan  int
	PhaseGoal   string
}

func readNormalized(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func isEmptyValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "tbd", "n/a", "":
		return true
	}
	return false
}

// fieldPatterns builds the tolerant field-extraction regex set for a
// given field name, supporting both the bold-field form ("**Phase:**
// 3") and the free-text form ("Phase: 3" or "- Phase 3").
func fieldPatterns(key string) []*regexp.Regexp {
	escaped := regexp.QuoteMeta(key)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\*\*` + escaped + `:?\*\*\s*:?\s*(.+)$`),
		regexp.MustCompile(`(?im)^-?\s*` + escaped + `\s*:\s*(.+)$`),
		regexp.MustCompile(`(?im)^-?\s*` + escaped + `\s+(\S.*)$`),
	}
}

// extractField returns the first non-empty value found for key across
// both authoring styles.
func extractField(text, key string) (string, bool) {
	for _, p := range fieldPatterns(key) {
		if m := p.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if isEmptyValue(v) {
				continue
			}
			return v, true
		}
	}
	return "", false
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

func parsePhaseNumber(s string) float64 {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(m, 64)
	return v
}

var intPattern = regexp.MustCompile(`\d+`)

func parseIntField(s string) int {
	m := intPattern.FindString(s)
	if m == "" {
		return 0
	}
	v, _ := strconv.Atoi(m)
	return v
}

// ParseState reads .planning/STATE.md and returns the active phase/plan
// pointer. A missing or unreadable file returns a nil State with the
// read error, and callers treat a non-nil error as "no GSD state for
// this project"; fields the file does not carry stay at their zero value.
func ParseState(path string) (*State, error) {
	text, err := readNormalized(path)
	if err != nil {
		return nil, err
	}

	st := &State{}
	if v, ok := extractField(text, "Phase"); ok {
		st.ActivePhase = parsePhaseNumber(v)
	} else if v, ok := extractField(text, "Current Phase"); ok {
		st.ActivePhase = parsePhaseNumber(v)
	}
	if v, ok := extractField(text, "Plan"); ok {
		st.ActivePlan = parseIntField(v)
	} else if v, ok := extractField(text, "Active Plan"); ok {
		st.ActivePlan = parseIntField(v)
	}
	if v, ok := extractField(text, "Goal"); ok {
		st.PhaseGoal = v
	}
	return st, nil
}

// bulletPattern matches one Markdown bullet list item ("-" or "*").
var bulletPattern = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+)$`)

// headingOffset finds the line introducing a labeled list (bold or plain)
// and returns the byte offset just after it, or -1 if not found.
func headingOffset(text, label string) int {
	escaped := regexp.QuoteMeta(label)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\*\*` + escaped + `:?\*\*\s*$`),
		regexp.MustCompile(`(?im)^` + escaped + `\s*:?\s*$`),
		regexp.MustCompile(`(?im)^#{1,4}\s*` + escaped + `\s*$`),
	}
	for _, p := range patterns {
		if loc := p.FindStringIndex(text); loc != nil {
			return loc[1]
		}
	}
	return -1
}

// extractBulletsAfter collects the contiguous run of bullet items
// immediately following a labeled heading, stopping at the first
// non-bullet, non-blank line.
func extractBulletsAfter(text, label string) []string {
	off := headingOffset(text, label)
	if off < 0 {
		return nil
	}
	rest := text[off:]
	lines := strings.Split(rest, "\n")
	var items []string
	started := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if started {
				break
			}
			continue
		}
		m := bulletPattern.FindStringSubmatch(line)
		if m == nil {
			break
		}
		started = true
		v := strings.TrimSpace(m[1])
		if !isEmptyValue(v) {
			items = append(items, v)
		}
	}
	return items
}

func extractBulletsAfterAny(text string, labels []string) []string {
	for _, l := range labels {
		if items := extractBulletsAfter(text, l); len(items) > 0 {
			return items
		}
	}
	return nil
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func truncateList(items []string, maxCount, maxLen int) []string {
	if len(items) > maxCount {
		items = items[:maxCount]
	}
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = truncateText(v, maxLen)
	}
	return out
}

// PhaseRoadmapEntry is one phase's entry in ROADMAP.md.
type PhaseRoadmapEntry struct {
	Number          float64
	Title           string
	Goal            string
	SuccessCriteria []string
}

var phaseHeading = regexp.MustCompile(`(?im)^#{0,3}\s*Phase\s+(\d+(?:\.\d+)?)\s*[:\-–]?\s*(.*)$`)

// ParseRoadmap reads .planning/ROADMAP.md into an ordered (by phase
// number, ascending — decimal phase numbers sort naturally between
// their integer neighbors) list of phase entries.
func ParseRoadmap(path string) ([]PhaseRoadmapEntry, error) {
	text, err := readNormalized(path)
	if err != nil {
		return nil, err
	}

	locs := phaseHeading.FindAllStringSubmatchIndex(text, -1)
	entries := make([]PhaseRoadmapEntry, 0, len(locs))
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := text[start:end]

		num, _ := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		title := strings.TrimSpace(text[loc[4]:loc[5]])

		goal, _ := extractField(block, "Goal")
		criteria := extractBulletsAfterAny(block, []string{"Success Criteria"})
		entries = append(entries, PhaseRoadmapEntry{
			Number:          num,
			Title:           title,
			Goal:            goal,
			SuccessCriteria: truncateList(criteria, 4, 100),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	return entries, nil
}

// RequirementStats is a (complete, total) count over REQUIREMENTS.md's
// checklist items, filtering "None/TBD/N/A" placeholder lines.
type RequirementStats struct {
	Done  int
	Total int
}

var checklistItem = regexp.MustCompile(`(?im)^\s*-\s*\[([ xX])\]\s*(.+)$`)

// ParseRequirements reads .planning/REQUIREMENTS.md's checklist.
func ParseRequirements(path string) (RequirementStats, error) {
	text, err := readNormalized(path)
	if err != nil {
		return RequirementStats{}, err
	}

	var stats RequirementStats
	for _, m := range checklistItem.FindAllStringSubmatch(text, -1) {
		if isEmptyValue(m[2]) {
			continue
		}
		stats.Total++
		if strings.EqualFold(m[1], "x") {
			stats.Done++
		}
	}
	return stats, nil
}

// Plan is the parsed content of one NN-MM-PLAN.md file: the files it
// touches and its must-have completion criteria.
type Plan struct {
	FilesModified []string
	MustHaves     []string
}

// ParsePlan reads one phase plan file.
func ParsePlan(path string) (*Plan, error) {
	text, err := readNormalized(path)
	if err != nil {
		return nil, err
	}
	return &Plan{
		FilesModified: extractBulletsAfterAny(text, []string{"Files Modified", "Files to Modify", "Files"}),
		MustHaves:     extractBulletsAfterAny(text, []string{"Must Haves", "Must-Haves", "Must Have"}),
	}, nil
}
