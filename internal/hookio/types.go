// Package hookio implements the typed hook I/O boundary: raw JSON from
// the assistant host is parsed once, at the edge, into a closed set of
// concrete Go structs. Nothing downstream of Parse ever sees a bare
// map[string]any.
package hookio

// EventName identifies which hook fired, mirroring the
// hookSpecificOutput.hookEventName values the assistant host sends.
type EventName string

const (
	EventUserPromptSubmit EventName = "UserPromptSubmit"
	EventSessionStart     EventName = "SessionStart"
	EventStop             EventName = "Stop"
	EventPreCompact       EventName = "PreCompact"
	EventPostToolUse      EventName = "PostToolUse"
	EventSessionEnd       EventName = "SessionEnd"
)

// HookInput is the closed tagged union of everything a hook stdin
// payload can decode to. Implementations are UserPromptSubmitInput,
// SessionStartInput, StopInput, PreCompactInput, PostToolUseInput, and
// SessionEndInput.
type HookInput interface {
	Event() EventName
	Common() CommonFields
}

// CommonFields are present on every hook payload regardless of shape.
type CommonFields struct {
	SessionID      string `json:"session_id"`
	Cwd            string `json:"cwd"`
	TranscriptPath string `json:"transcript_path"`
}

// UserPromptSubmitInput is the payload for the UserPromptSubmit hook:
// the trigger for context assembly and the tiered file-scoring query.
type UserPromptSubmitInput struct {
	CommonFields
	Prompt string `json:"prompt"`
}

func (UserPromptSubmitInput) Event() EventName          { return EventUserPromptSubmit }
func (i UserPromptSubmitInput) Common() CommonFields     { return i.CommonFields }

// SessionStartInput is the payload for the SessionStart hook: the
// trigger for the session-start recovery pass.
type SessionStartInput struct {
	CommonFields
	Source string `json:"source"` // "startup" | "resume" | "compact"
}

func (SessionStartInput) Event() EventName      { return EventSessionStart }
func (i SessionStartInput) Common() CommonFields { return i.CommonFields }

// StopInput is the payload for the Stop hook: the trigger for the
// decision-nudge policy.
type StopInput struct {
	CommonFields
}

func (StopInput) Event() EventName          { return EventStop }
func (i StopInput) Common() CommonFields     { return i.CommonFields }

// PreCompactInput is the payload for the PreCompact hook: the trigger
// for the flush and checkpoint orchestrator.
type PreCompactInput struct {
	CommonFields
	Trigger string `json:"trigger"` // "manual" | "auto"
}

func (PreCompactInput) Event() EventName      { return EventPreCompact }
func (i PreCompactInput) Common() CommonFields { return i.CommonFields }

// ToolResult carries the minimal (tool, input, response) triple the
// observation extractor normalizes.
type ToolResult struct {
	ToolName string                 `json:"tool_name"`
	Input    map[string]interface{} `json:"tool_input"`
	Response interface{}            `json:"tool_response"`
}

// PostToolUseInput is the payload for the PostToolUse hook: the trigger
// for observation extraction.
type PostToolUseInput struct {
	CommonFields
	ToolResult
}

func (PostToolUseInput) Event() EventName      { return EventPostToolUse }
func (i PostToolUseInput) Common() CommonFields { return i.CommonFields }

// SessionEndInput is the payload for the SessionEnd hook.
type SessionEndInput struct {
	CommonFields
	Reason string `json:"reason"`
}

func (SessionEndInput) Event() EventName      { return EventSessionEnd }
func (i SessionEndInput) Common() CommonFields { return i.CommonFields }

// Output is the stdout envelope the host expects. An empty Output
// (zero value) serializes to "{}", meaning "inject nothing".
type Output struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries the markdown block injected back into the
// assistant's context.
type HookSpecificOutput struct {
	HookEventName     EventName `json:"hookEventName"`
	AdditionalContext string    `json:"additionalContext"`
}

// Empty returns the "inject nothing" output.
func Empty() Output { return Output{} }

// WithContext builds an Output carrying additionalContext for the event.
func WithContext(event EventName, markdown string) Output {
	return Output{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:     event,
		AdditionalContext: markdown,
	}}
}
