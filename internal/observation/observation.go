// Package observation turns one PostToolUse hook payload into a single
// Observation row, or drops it. Extraction is a pure function of
// (tool name, input, response), dispatched through a name-keyed handler
// table.
package observation

import (
	"strconv"
	"strings"
	"time"

	"claudex/internal/hookio"
	"claudex/internal/redact"
)

// Category enumerates an observation's kind.
type Category string

const (
	CategoryDiscovery     Category = "discovery"
	CategoryChange        Category = "change"
	CategoryFeature       Category = "feature"
	CategoryBugfix        Category = "bugfix"
	CategoryConfiguration Category = "configuration"
	CategoryError         Category = "error"
)

// Observation is the row handed to the store. Fields are immutable
// after write except for the three the store mutates post-insert
// (AccessCount, LastAccessedEpoch, DeletedAtEpoch), which this package
// never sets.
type Observation struct {
	SessionID        string
	Project          string
	TimestampEpochMs int64
	ToolName         string
	Category         Category
	Title            string
	Content          string
	FilesRead        []string
	FilesModified    []string
	Importance       int
}

// extensionBoost extensions raise a Read observation from importance 2
// to 3.
var extensionBoost = map[string]bool{
	"json": true, "yaml": true, "yml": true, "toml": true,
	"env": true, "md": true,
}

var boostSuffixes = []string{".test.", ".spec."}

// droppedBashCommands are side-effect-free inspection commands whose
// PostToolUse call carries no information worth remembering.
var droppedBashCommands = map[string]bool{
	"ls": true, "cd": true, "pwd": true, "cat": true, "head": true,
	"tail": true, "echo": true, "type": true, "dir": true, "cls": true,
	"clear": true, "which": true, "where": true, "whoami": true,
}

// handler extracts an Observation from a PostToolUse payload, or
// returns nil to drop it.
type handler func(in hookio.PostToolUseInput, now time.Time, projectRoot string) *Observation

var dispatch = map[string]handler{
	"Read":        handleRead,
	"Edit":        handleEdit,
	"Write":       handleWrite,
	"Bash":        handleBash,
	"Grep":        handleGrep,
	"Glob":        handleGlob,
	"WebFetch":    handleWeb,
	"WebSearch":   handleWeb,
	"Task":        handleTask,
	"NotebookEdit": handleNotebookEdit,
}

// Extract runs the handler registered for in.ToolName, sanitizing and
// redacting the result before returning it. Unknown tool names drop
// silently, same as any handler returning nil.
func Extract(in hookio.PostToolUseInput, now time.Time, projectRoot string) *Observation {
	h, ok := dispatch[in.ToolName]
	if !ok {
		return nil
	}
	obs := h(in, now, projectRoot)
	if obs == nil {
		return nil
	}
	obs.Title = redact.Full(obs.Title)
	obs.Content = redact.Full(obs.Content)
	for i, p := range obs.FilesRead {
		obs.FilesRead[i] = redact.SanitizePath(p, projectRoot)
	}
	for i, p := range obs.FilesModified {
		obs.FilesModified[i] = redact.SanitizePath(p, projectRoot)
	}
	return obs
}

func epochMs(t time.Time) int64 { return t.UnixMilli() }

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncateLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[:n], "\n")
}

func responseString(r interface{}) string {
	if s, ok := r.(string); ok {
		return s
	}
	return ""
}

func handleRead(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	path := stringField(in.Input, "file_path")
	importance := 2
	ext := strings.TrimPrefix(strings.ToLower(extOf(path)), ".")
	if extensionBoost[ext] {
		importance = 3
	}
	for _, suffix := range boostSuffixes {
		if strings.Contains(strings.ToLower(path), suffix) {
			importance = 3
		}
	}
	content := truncateLines(responseString(in.Response), 8)
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Read",
		Category:         CategoryDiscovery,
		Title:            "Read " + path,
		Content:          content,
		FilesRead:        []string{path},
		Importance:       importance,
	}
}

func extOf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

func handleEdit(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	path := stringField(in.Input, "file_path")
	oldStr := truncateLines(stringField(in.Input, "old_string"), 5)
	newStr := truncateLines(stringField(in.Input, "new_string"), 5)
	content := "old:\n" + oldStr + "\nnew:\n" + newStr
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Edit",
		Category:         CategoryChange,
		Title:            "Edit " + path,
		Content:          content,
		FilesModified:    []string{path},
		Importance:       3,
	}
}

func handleWrite(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	path := stringField(in.Input, "file_path")
	content := truncateLines(stringField(in.Input, "content"), 8)
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Write",
		Category:         CategoryFeature,
		Title:            "Write " + path,
		Content:          content,
		FilesModified:    []string{path},
		Importance:       3,
	}
}

func handleBash(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	command := stringField(in.Input, "command")
	description := stringField(in.Input, "description")
	base := baseCommand(command)
	if droppedBashCommands[base] {
		return nil
	}

	exitCode := 0
	stdout, stderr := "", ""
	if resp, ok := in.Response.(map[string]interface{}); ok {
		if v, ok := resp["exit_code"].(float64); ok {
			exitCode = int(v)
		}
		stdout = stringField(resp, "stdout")
		stderr = stringField(resp, "stderr")
	}

	category := CategoryChange
	importance := 3
	var content strings.Builder
	if description != "" {
		content.WriteString("[" + description + "]\n")
	}
	content.WriteString(truncateLines(stdout, 10))
	if exitCode != 0 {
		category = CategoryError
		importance = 4
		content.WriteString("\n")
		content.WriteString(truncateLines(stderr, 3))
	}

	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Bash",
		Category:         category,
		Title:            "Bash: " + command,
		Content:          content.String(),
		Importance:       importance,
	}
}

func baseCommand(command string) string {
	trimmed := strings.TrimSpace(command)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func handleGrep(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	pattern := stringField(in.Input, "pattern")
	files, count := topFiles(in.Response, 5)
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Grep",
		Category:         CategoryDiscovery,
		Title:            "Grep: " + pattern,
		Content:          matchSummary(count, files),
		FilesRead:        files,
		Importance:       2,
	}
}

func handleGlob(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	files, count := topFiles(in.Response, 1<<30)
	if count < 3 {
		return nil
	}
	pattern := stringField(in.Input, "pattern")
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Glob",
		Category:         CategoryDiscovery,
		Title:            "Glob: " + pattern,
		Content:          matchSummary(count, files),
		FilesRead:        files,
		Importance:       2,
	}
}

func topFiles(response interface{}, max int) ([]string, int) {
	var all []string
	switch r := response.(type) {
	case []interface{}:
		for _, v := range r {
			if s, ok := v.(string); ok {
				all = append(all, s)
			}
		}
	case string:
		all = strings.Split(strings.TrimSpace(r), "\n")
	}
	count := len(all)
	if count > max {
		all = all[:max]
	}
	return all, count
}

func matchSummary(count int, files []string) string {
	return strings.Join(files, "\n") + "\n(" + strconv.Itoa(count) + " matches)"
}

func handleWeb(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	query := stringField(in.Input, "query")
	if query == "" {
		query = stringField(in.Input, "url")
	}
	content := truncateLines(responseString(in.Response), 10)
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         in.ToolName,
		Category:         CategoryDiscovery,
		Title:            in.ToolName + ": " + query,
		Content:          content,
		Importance:       3,
	}
}

func handleTask(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	description := stringField(in.Input, "description")
	content := truncateLines(responseString(in.Response), 10)
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "Task",
		Category:         CategoryDiscovery,
		Title:            "Task: " + description,
		Content:          content,
		Importance:       3,
	}
}

func handleNotebookEdit(in hookio.PostToolUseInput, now time.Time, _ string) *Observation {
	path := stringField(in.Input, "notebook_path")
	return &Observation{
		SessionID:        in.Common().SessionID,
		TimestampEpochMs: epochMs(now),
		ToolName:         "NotebookEdit",
		Category:         CategoryChange,
		Title:            "NotebookEdit " + path,
		Content:          truncateLines(stringField(in.Input, "new_source"), 5),
		FilesModified:    []string{path},
		Importance:       3,
	}
}
