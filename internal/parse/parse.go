// Package parse extracts [THOUGHT], [ACTION], and [CHAT] blocks from
// raw model output.
//
// Failure handling:
//
//	missing [CHAT]     -> canned fallback, logged as error
//	missing [THOUGHT]  -> continue, logged only
//	missing [ACTION]   -> continue, no validation downstream
//	no blocks at all   -> whole output treated as [CHAT]
//	malformed [ACTION] -> action discarded, [CHAT] still returned
package parse

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"council/internal/llm"
)

// Reply is the structured form of one model response. Chat is never
// empty: a fallback string is substituted whenever extraction yields
// nothing usable.
type Reply struct {
	Thought string
	Action  string
	Chat    string
	// ActionValid is false when an action block was present but did
	// not match the recognized grammar.
	ActionValid bool
	// FallbackUsed is true when Chat had to be substituted.
	FallbackUsed bool
}

var tagPattern = regexp.MustCompile(`(?i)\[(THOUGHT|ACTION|CHAT)\]`)

// Recognized action grammar: a read or write verb followed by content.
var actionPattern = regexp.MustCompile(`(?i)^\s*(FETCH|UPDATE)\s+\S+`)

// extractBlocks locates every recognized tag and slices the content
// between it and the next recognized tag (or end of text). A repeated
// tag keeps its first occurrence.
func extractBlocks(raw string) map[string]string {
	locs := tagPattern.FindAllStringSubmatchIndex(raw, -1)
	blocks := map[string]string{}
	for i, loc := range locs {
		name := strings.ToUpper(raw[loc[2]:loc[3]])
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := blocks[name]; !seen {
			blocks[name] = strings.TrimSpace(raw[loc[1]:end])
		}
	}
	return blocks
}

// Parser turns raw inference output into a Reply.
type Parser struct {
	logger *zap.Logger
}

// New constructs a Parser.
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts tagged blocks from the result. Block content runs
// until the next recognized tag or end of text.
func (p *Parser) Parse(result llm.Result) Reply {
	raw := strings.TrimSpace(result.Raw)

	blocks := extractBlocks(raw)

	if len(blocks) == 0 {
		p.logger.Warn("model output contained no tagged blocks, treating as chat")
		return Reply{
			Chat:         orFallback(raw),
			FallbackUsed: raw == "",
		}
	}

	thought := blocks["THOUGHT"]
	action := blocks["ACTION"]
	chat := blocks["CHAT"]

	if thought == "" {
		p.logger.Warn("model output missing [THOUGHT] block")
	}

	actionValid := false
	if action != "" {
		if actionPattern.MatchString(action) {
			actionValid = true
		} else {
			p.logger.Warn("malformed [ACTION] block rejected",
				zap.String("action", action))
			action = ""
		}
	}

	if chat == "" {
		p.logger.Error("model output missing [CHAT] block, using fallback")
		return Reply{
			Thought:      thought,
			Action:       action,
			Chat:         llm.FallbackReply,
			ActionValid:  actionValid,
			FallbackUsed: true,
		}
	}

	return Reply{
		Thought:     thought,
		Action:      action,
		Chat:        chat,
		ActionValid: actionValid,
	}
}

func orFallback(s string) string {
	if s == "" {
		return llm.FallbackReply
	}
	return s
}
