package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"council/internal/actor"
	"council/internal/gate"
)

const relationshipsBlock = `MAYA is a pragmatist. You respect her numbers even when you
argue with her conclusions.
VIKTOR talks too much. You tune him out until he says something
about launch windows.`

func advisorSpec() *actor.Spec {
	return &actor.Spec{
		FirstName:      "Jonny",
		FamilyName:     "Ishimura",
		Nickname:       "Jonny-O",
		DisplayName:    "Jonny Ishimura",
		Profession:     "Mission Planner",
		DomainPrimary:  "orbital mechanics",
		DomainKeywords: []string{"orbit", "transfer", "delta-v"},
		Fragments: map[string]string{
			actor.FragmentVoice:         "Speaks in clipped sentences.",
			actor.FragmentLimits:        "Never speculates about politics.",
			actor.FragmentDomain:        "Thinks in burn windows and mass ratios.",
			actor.FragmentRelationships: relationshipsBlock,
			actor.FragmentSpectator:     "Mutters about wasted delta-v.",
		},
	}
}

func categories(r FetchResult) []string {
	out := make([]string, len(r.Fragments))
	for i, f := range r.Fragments {
		out[i] = f.Category
	}
	return out
}

func TestFetchBaseAndAlwaysInjected(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{Spec: advisorSpec(), Query: "unrelated question", Confidence: gate.Full})

	assert.Equal(t, []string{CategoryBase, actor.FragmentVoice, actor.FragmentLimits}, categories(res))

	base := res.Fragments[0].Content
	assert.Contains(t, base, "Name: Jonny Ishimura")
	assert.Contains(t, base, "Known as: Jonny-O")
	assert.Contains(t, base, "Role: Mission Planner")
	assert.NotContains(t, base, "clipped sentences", "base must not leak persona content")
}

func TestFetchDomainOnKeywordMatch(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{Spec: advisorSpec(), Query: "What Transfer window works?", Confidence: gate.Full})

	assert.Contains(t, categories(res), actor.FragmentDomain)
}

func TestFetchHedgeAppendedLast(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{Spec: advisorSpec(), Query: "hi", Confidence: gate.Hedged})

	require.NotEmpty(t, res.Fragments)
	last := res.Fragments[len(res.Fragments)-1]
	assert.Equal(t, CategoryTierHedge, last.Category)
	assert.Equal(t, HedgeInstruction, last.Content)
}

func TestRelationshipSubSection(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{
		Spec:       advisorSpec(),
		Query:      "hi",
		Confidence: gate.Full,
		OtherNames: []string{"Maya Okafor"},
	})

	var rel *Fragment
	for i := range res.Fragments {
		if res.Fragments[i].Category == actor.FragmentRelationships {
			rel = &res.Fragments[i]
		}
	}
	require.NotNil(t, rel)
	assert.Equal(t, "Maya Okafor", rel.Subject)
	assert.Contains(t, rel.Content, "pragmatist")
	assert.NotContains(t, rel.Content, "VIKTOR", "sub-section must stop at the next advisor")
}

func TestRelationshipFallbackInjectsBlockOnce(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{
		Spec:       advisorSpec(),
		Query:      "hi",
		Confidence: gate.Full,
		OtherNames: []string{"Unknown Person", "Maya Okafor"},
	})

	var rels []Fragment
	for _, f := range res.Fragments {
		if f.Category == actor.FragmentRelationships {
			rels = append(rels, f)
		}
	}
	require.Len(t, rels, 1, "full block injected once, then the search stops")
	assert.Empty(t, rels[0].Subject)
	assert.Equal(t, relationshipsBlock, rels[0].Content)
}

func TestSpectatorOnlyFetch(t *testing.T) {
	a := New(zap.NewNop())
	res := a.Fetch(Request{Spec: advisorSpec(), Query: "hi", SpectatorOnly: true})

	require.Len(t, res.Fragments, 1)
	assert.Equal(t, actor.FragmentSpectator, res.Fragments[0].Category)
	assert.Equal(t, "Mutters about wasted delta-v.", res.Fragments[0].Content)
}

func TestSpectatorOnlyMissingFragment(t *testing.T) {
	spec := advisorSpec()
	delete(spec.Fragments, actor.FragmentSpectator)

	a := New(zap.NewNop())
	res := a.Fetch(Request{Spec: spec, Query: "hi", SpectatorOnly: true})
	assert.Empty(t, res.Fragments)
}

func TestAssembledJoinsWithBlankLines(t *testing.T) {
	r := FetchResult{Fragments: []Fragment{
		{Content: "one"}, {Content: "two"},
	}}
	assert.Equal(t, "one\n\ntwo", r.Assembled())
}
