package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	all := []Type{
		Standard, Debate, DebateInterrupt, Ambiguous,
		TooVague, TooBroad, NoMatch, Spectator, Archive, Error,
	}
	for _, f := range all {
		parsed, err := Parse(f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, f, parsed)
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("interpretive_dance")
	require.Error(t, err)
}

func TestTerminal(t *testing.T) {
	assert.True(t, TooVague.Terminal())
	assert.True(t, TooBroad.Terminal())
	assert.True(t, NoMatch.Terminal())
	assert.False(t, Standard.Terminal())
	assert.False(t, Debate.Terminal())
	assert.False(t, Ambiguous.Terminal())
}

func TestUnknownTypeString(t *testing.T) {
	assert.Equal(t, "flow(99)", Type(99).String())
}
