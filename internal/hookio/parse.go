package hookio

import (
	"encoding/json"
	"fmt"

	"claudex/internal/claudexerr"
)

// Parse decodes a raw hook stdin payload into the concrete HookInput the
// caller is expecting. event must be supplied by the invoker (claudex is
// always invoked from a per-hook entrypoint that knows which hook it is)
// since the JSON body alone does not self-identify its event.
func Parse(event EventName, raw []byte) (HookInput, error) {
	switch event {
	case EventUserPromptSubmit:
		var in UserPromptSubmitInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(UserPromptSubmit)", err)
		}
		return in, nil
	case EventSessionStart:
		var in SessionStartInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(SessionStart)", err)
		}
		return in, nil
	case EventStop:
		var in StopInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(Stop)", err)
		}
		return in, nil
	case EventPreCompact:
		var in PreCompactInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(PreCompact)", err)
		}
		return in, nil
	case EventPostToolUse:
		var in PostToolUseInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(PostToolUse)", err)
		}
		return in, nil
	case EventSessionEnd:
		var in SessionEndInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse(SessionEnd)", err)
		}
		return in, nil
	default:
		return nil, claudexerr.New(claudexerr.KindParseFailure, "hookio.Parse", fmt.Errorf("unknown hook event %q", event))
	}
}
