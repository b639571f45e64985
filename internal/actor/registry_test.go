package actor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jonnySpec = `
first_name = "Jonathan"
family_name = "Pratt"
nickname = "Jonny"
display_name = "Jonathan Pratt"
profession = "Mission Economist"
domain_primary = "funding and boost logistics"
domain_keywords = "money, boost, budget, funding"
tier_1_scope = "earth economy"
tier_2_scope = "orbital economy"
error_out_of_tier_2 = "Jonny shrugs. Above my pay grade."

[interrupt]
weight = 3
can_interrupt_own_debate = false
`

const jonnyPersona = `# Jonathan Pratt

## Personality

[voice]
Dry, numbers-first, allergic to adjectives.

[limits]
Will not speculate about alien intentions.

[domain]
Boost is measured in tons to LEO. Money is measured in regret.

[relationships]
WALE (Adewale Obi):
Respects the man, fears the spreadsheets.

[spectator]
Jonny raises an eyebrow and returns to his ledger.
`

func writeAdvisor(t *testing.T, rosterDir, dirName, spec, persona string) {
	t.Helper()
	dir := filepath.Join(rosterDir, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if spec != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "spec.toml"), []byte(spec), 0o644))
	}
	if persona != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.md"), []byte(persona), 0o644))
	}
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()
	writeAdvisor(t, dir, "jonny", jonnySpec, jonnyPersona)
	writeAdvisor(t, dir, "_template", jonnySpec, "")
	writeAdvisor(t, dir, "broken", "", "") // no spec.toml

	reg, err := Load(dir, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, 1, reg.Len(), "template and spec-less dirs are skipped")
	spec := reg.All()[0]
	assert.Equal(t, "Jonathan Pratt", spec.DisplayName)
	assert.Equal(t, "Mission Economist", spec.Profession)
	assert.Equal(t, []string{"money", "boost", "budget", "funding"}, spec.DomainKeywords)
	assert.Equal(t, 3, spec.Interrupt.Weight)
	assert.False(t, spec.Interrupt.CanInterruptOwnDebate)
}

func TestLoadRosterStableOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zara", "anna", "mike"} {
		writeAdvisor(t, dir, name, "first_name = \""+name+"\"\ndisplay_name = \""+name+"\"\n", "")
	}

	reg, err := Load(dir, zap.NewNop())
	require.NoError(t, err)

	var got []string
	for _, s := range reg.All() {
		got = append(got, s.DisplayName)
	}
	assert.Equal(t, []string{"anna", "mike", "zara"}, got)
}

func TestMatchTokens(t *testing.T) {
	spec := &Spec{FirstName: "Jonathan", FamilyName: "Pratt", Nickname: "Jonny"}
	assert.Equal(t, []string{"jonathan", "pratt", "jonny"}, spec.MatchTokens())

	bare := &Spec{FirstName: "Codex"}
	assert.Equal(t, []string{"codex"}, bare.MatchTokens())
}

func TestMaxTier(t *testing.T) {
	tests := []struct {
		name   string
		scopes [NumTiers]string
		want   int
	}{
		{"no scopes defaults to tier 1", [NumTiers]string{"", "", ""}, 1},
		{"tier 1 only", [NumTiers]string{"x", "", ""}, 1},
		{"tier 2", [NumTiers]string{"x", "y", ""}, 2},
		{"tier 3", [NumTiers]string{"x", "y", "z"}, 3},
		{"whitespace scope does not count", [NumTiers]string{"x", "   ", ""}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &Spec{}
			for i, s := range tt.scopes {
				spec.Tiers[i].Scope = s
			}
			assert.Equal(t, tt.want, spec.MaxTier())
		})
	}
}

func TestArchival(t *testing.T) {
	assert.True(t, (&Spec{FirstName: "Codex"}).Archival())
	assert.True(t, (&Spec{FirstName: "codex"}).Archival())
	assert.False(t, (&Spec{FirstName: "Jonathan"}).Archival())
}

func TestParseFragmentDoc(t *testing.T) {
	frags := parseFragmentDoc(jonnyPersona)

	assert.Equal(t, "Dry, numbers-first, allergic to adjectives.", frags["voice"])
	assert.Equal(t, "Will not speculate about alien intentions.", frags["limits"])
	assert.Contains(t, frags["relationships"], "WALE")
	assert.Contains(t, frags["spectator"], "ledger")
}

func TestParseFragmentDocStopsAtHeading(t *testing.T) {
	doc := "[voice]\nterse\n## Stage\n[spectator]\nnods\n"
	frags := parseFragmentDoc(doc)

	assert.Equal(t, "terse", frags["voice"])
	assert.Equal(t, "nods", frags["spectator"])
}

func TestParseFragmentDocDropsEmptySections(t *testing.T) {
	frags := parseFragmentDoc("[voice]\n\n[limits]\nhas some\n")
	_, ok := frags["voice"]
	assert.False(t, ok)
	assert.Equal(t, "has some", frags["limits"])
}
