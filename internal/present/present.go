// Package present formats parsed replies for display. Pure formatting,
// no inference calls, keyed by flow type with an exhaustive switch.
package present

import (
	"fmt"
	"strings"

	"council/internal/flow"
	"council/internal/parse"
)

// DecisionPrompt trails a debate interrupt to force arbitration.
const DecisionPrompt = "— your decision."

const systemPrefix = "[SYSTEM]"

// Render formats one parsed reply. speaker may be empty for spectator
// and error flows.
func Render(reply parse.Reply, f flow.Type, speaker string) string {
	chat := strings.TrimSpace(reply.Chat)
	if chat == "" {
		return ""
	}

	switch f {
	case flow.Spectator:
		return chat
	case flow.Error, flow.TooVague, flow.TooBroad, flow.NoMatch:
		return fmt.Sprintf("%s %s", systemPrefix, chat)
	case flow.DebateInterrupt:
		return fmt.Sprintf("%s%s\n\n%s", speakerPrefix(speaker), chat, DecisionPrompt)
	case flow.Standard, flow.Debate, flow.Ambiguous, flow.Archive:
		return speakerPrefix(speaker) + chat
	default:
		// Unreachable while the flow enum stays closed.
		return speakerPrefix(speaker) + chat
	}
}

// StageDirection wraps a system note in stage-direction brackets.
func StageDirection(note string) string {
	return fmt.Sprintf("[%s]", note)
}

func speakerPrefix(speaker string) string {
	if speaker == "" {
		return ""
	}
	return strings.ToUpper(speaker) + ": "
}
