package hookio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudex/internal/claudexerr"
)

func TestParseUserPromptSubmit(t *testing.T) {
	raw := []byte(`{"session_id":"abc","cwd":"/tmp/proj","transcript_path":"/tmp/t.jsonl","prompt":"fix the bug"}`)

	in, err := Parse(EventUserPromptSubmit, raw)
	require.NoError(t, err)

	ups, ok := in.(UserPromptSubmitInput)
	require.Truef(t, ok, "expected UserPromptSubmitInput, got %T", in)
	assert.Equal(t, "fix the bug", ups.Prompt)
	assert.Equal(t, "abc", ups.Common().SessionID)
	assert.Equal(t, EventUserPromptSubmit, in.Event())
}

func TestParsePostToolUse(t *testing.T) {
	raw := []byte(`{"session_id":"abc","cwd":"/tmp","transcript_path":"/tmp/t.jsonl",
		"tool_name":"Read","tool_input":{"file_path":"/tmp/x.go"},"tool_response":"package main"}`)

	in, err := Parse(EventPostToolUse, raw)
	require.NoError(t, err)
	pt, ok := in.(PostToolUseInput)
	require.Truef(t, ok, "expected PostToolUseInput, got %T", in)
	assert.Equal(t, "Read", pt.ToolName)
}

func TestParseUnknownEventIsParseFailure(t *testing.T) {
	_, err := Parse(EventName("NotARealHook"), []byte(`{}`))
	require.Error(t, err)
	assert.True(t, claudexerr.Is(err, claudexerr.KindParseFailure))
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse(EventSessionStart, []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, claudexerr.Is(err, claudexerr.KindParseFailure))
}

func TestWriteEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Empty()))
	assert.JSONEq(t, "{}", buf.String())
}

func TestWriteWithContext(t *testing.T) {
	var buf bytes.Buffer
	out := WithContext(EventUserPromptSubmit, "## Active Focus\n- foo.go")
	require.NoError(t, Write(&buf, out))
	assert.Contains(t, buf.String(), `"hookEventName":"UserPromptSubmit"`)
	assert.Contains(t, buf.String(), "Active Focus")
}
