package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"council/internal/llm"
)

func parseRaw(raw string) Reply {
	return New(zap.NewNop()).Parse(llm.Result{Raw: raw, Success: true})
}

func TestParseFullReply(t *testing.T) {
	raw := "[THOUGHT] The window closes in March.\n" +
		"[ACTION] FETCH nations\n" +
		"[CHAT] We burn now or we wait two years."

	r := parseRaw(raw)
	assert.Equal(t, "The window closes in March.", r.Thought)
	assert.Equal(t, "FETCH nations", r.Action)
	assert.Equal(t, "We burn now or we wait two years.", r.Chat)
	assert.True(t, r.ActionValid)
	assert.False(t, r.FallbackUsed)
}

func TestParseTagsInAnyOrder(t *testing.T) {
	r := parseRaw("[CHAT] Answer first.\n[THOUGHT] Reasoning after.")
	assert.Equal(t, "Answer first.", r.Chat)
	assert.Equal(t, "Reasoning after.", r.Thought)
}

func TestParseNoTagsTreatedAsChat(t *testing.T) {
	r := parseRaw("The model ignored the format entirely.")
	assert.Equal(t, "The model ignored the format entirely.", r.Chat)
	assert.Empty(t, r.Thought)
	assert.False(t, r.FallbackUsed)
}

func TestParseEmptyOutputFallsBack(t *testing.T) {
	r := parseRaw("   ")
	assert.Equal(t, llm.FallbackReply, r.Chat)
	assert.True(t, r.FallbackUsed)
}

func TestParseMissingChatFallsBack(t *testing.T) {
	r := parseRaw("[THOUGHT] Reasoning with no answer.")
	assert.Equal(t, "Reasoning with no answer.", r.Thought)
	assert.Equal(t, llm.FallbackReply, r.Chat)
	assert.True(t, r.FallbackUsed)
}

func TestParseMissingThoughtContinues(t *testing.T) {
	r := parseRaw("[CHAT] Just the answer.")
	assert.Empty(t, r.Thought)
	assert.Equal(t, "Just the answer.", r.Chat)
	assert.False(t, r.FallbackUsed)
}

func TestParseMalformedActionDiscarded(t *testing.T) {
	r := parseRaw("[ACTION] DESTROY everything\n[CHAT] I refuse to log that.")
	assert.Empty(t, r.Action)
	assert.False(t, r.ActionValid)
	assert.Equal(t, "I refuse to log that.", r.Chat)
}

func TestParseActionVerbs(t *testing.T) {
	cases := []struct {
		action string
		valid  bool
	}{
		{"FETCH councilors", true},
		{"fetch councilors", true},
		{"UPDATE directive: fund the boost program", true},
		{"FETCH", false},
		{"PONDER the mission", false},
	}
	for _, tc := range cases {
		r := parseRaw("[ACTION] " + tc.action + "\n[CHAT] ok")
		assert.Equal(t, tc.valid, r.ActionValid, tc.action)
	}
}

func TestParseRepeatedTagKeepsFirst(t *testing.T) {
	r := parseRaw("[CHAT] first answer\n[CHAT] second answer")
	assert.Equal(t, "first answer", r.Chat)
}

func TestParseLowercaseTags(t *testing.T) {
	r := parseRaw("[thought] quiet\n[chat] loud")
	assert.Equal(t, "quiet", r.Thought)
	assert.Equal(t, "loud", r.Chat)
}

func TestParseChatSurvivesRoundTrip(t *testing.T) {
	// Multi-line chat with punctuation must come back verbatim.
	chat := "Line one.\nLine two, with a [bracketed aside] the parser must keep."
	r := parseRaw("[THOUGHT] x\n[CHAT] " + chat)
	assert.Equal(t, chat, r.Chat)
}
