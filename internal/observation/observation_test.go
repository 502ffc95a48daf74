package observation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudex/internal/hookio"
)

func baseInput(tool string, input map[string]interface{}, response interface{}) hookio.PostToolUseInput {
	return hookio.PostToolUseInput{
		CommonFields: hookio.CommonFields{SessionID: "sess-1", Cwd: "/tmp/proj"},
		ToolResult: hookio.ToolResult{
			ToolName: tool,
			Input:    input,
			Response: response,
		},
	}
}

func TestExtractReadBoostsImportanceForYAML(t *testing.T) {
	in := baseInput("Read", map[string]interface{}{"file_path": "/tmp/proj/config.yaml"}, "a: 1\n")
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	require.NotNil(t, obs)
	assert.Equal(t, 3, obs.Importance, "expected importance 3 for yaml")
	assert.Equal(t, CategoryDiscovery, obs.Category)
}

func TestExtractReadDefaultImportance(t *testing.T) {
	in := baseInput("Read", map[string]interface{}{"file_path": "/tmp/proj/main.go"}, "package main\n")
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	require.NotNil(t, obs)
	assert.Equal(t, 2, obs.Importance)
}

func TestExtractEditCapturesFilesModified(t *testing.T) {
	in := baseInput("Edit", map[string]interface{}{
		"file_path":  "/tmp/proj/main.go",
		"old_string": "foo",
		"new_string": "bar",
	}, nil)
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	require.NotNil(t, obs)
	assert.Equal(t, CategoryChange, obs.Category)
	assert.Equal(t, 3, obs.Importance)
	assert.Equal(t, []string{"<project>/main.go"}, obs.FilesModified)
}

func TestExtractBashDropsInspectionCommands(t *testing.T) {
	in := baseInput("Bash", map[string]interface{}{"command": "ls -la"}, map[string]interface{}{"exit_code": float64(0)})
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	assert.Nil(t, obs, "expected nil for dropped bash command")
}

func TestExtractBashNonZeroExitIsError(t *testing.T) {
	in := baseInput("Bash", map[string]interface{}{"command": "go test ./..."},
		map[string]interface{}{"exit_code": float64(1), "stdout": "FAIL", "stderr": "panic: boom"})
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	require.NotNil(t, obs)
	assert.Equal(t, CategoryError, obs.Category)
	assert.Equal(t, 4, obs.Importance)
}

func TestExtractGlobDropsUnderThreeResults(t *testing.T) {
	in := baseInput("Glob", map[string]interface{}{"pattern": "*.go"},
		[]interface{}{"a.go", "b.go"})
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	assert.Nil(t, obs, "expected nil for <3 glob results")
}

func TestExtractGlobKeepsThreeOrMoreResults(t *testing.T) {
	in := baseInput("Glob", map[string]interface{}{"pattern": "*.go"},
		[]interface{}{"a.go", "b.go", "c.go"})
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	assert.NotNil(t, obs, "expected observation for 3 glob results")
}

func TestExtractUnknownToolDrops(t *testing.T) {
	in := baseInput("SomeFutureTool", nil, nil)
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	assert.Nil(t, obs, "expected nil for unknown tool")
}

func TestExtractRedactsSecretsInContent(t *testing.T) {
	in := baseInput("Read", map[string]interface{}{"file_path": "/tmp/proj/.env"}, "api_key=sk-ABCDEFGHIJ1234567890\n")
	obs := Extract(in, time.Unix(0, 0), "/tmp/proj")
	require.NotNil(t, obs)
	assert.NotContains(t, obs.Content, "sk-ABCDEFGHIJ1234567890", "expected secret to be redacted from content")
}
