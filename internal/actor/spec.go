// Package actor loads and holds the advisor roster. Each advisor lives
// in its own directory containing a spec.toml identity record and a
// persona.md fragment document. Everything is decoded once at load time
// into a strongly typed Spec; downstream components never touch the
// files again.
package actor

import (
	"strings"

	"github.com/BurntSushi/toml"
)

// NumTiers is the number of campaign capability tiers.
const NumTiers = 3

// archivalName identifies the archival reporting advisor. It carries no
// opinion content: tier gating and voice/limits requirements do not
// apply to it.
const archivalName = "codex"

// specFile mirrors the on-disk spec.toml layout.
type specFile struct {
	FirstName      string `toml:"first_name"`
	FamilyName     string `toml:"family_name"`
	Nickname       string `toml:"nickname"`
	DisplayName    string `toml:"display_name"`
	Profession     string `toml:"profession"`
	DomainPrimary  string `toml:"domain_primary"`
	DomainKeywords string `toml:"domain_keywords"`

	Tier1Scope string `toml:"tier_1_scope"`
	Tier2Scope string `toml:"tier_2_scope"`
	Tier3Scope string `toml:"tier_3_scope"`

	Tier1CanDiscuss    string `toml:"tier_1_can_discuss"`
	Tier1CannotDiscuss string `toml:"tier_1_cannot_discuss"`
	Tier2CanDiscuss    string `toml:"tier_2_can_discuss"`
	Tier2CannotDiscuss string `toml:"tier_2_cannot_discuss"`
	Tier3CanDiscuss    string `toml:"tier_3_can_discuss"`
	Tier3CannotDiscuss string `toml:"tier_3_cannot_discuss"`

	ErrorOutOfTier1 string `toml:"error_out_of_tier_1"`
	ErrorOutOfTier2 string `toml:"error_out_of_tier_2"`

	ReportLineBudget int `toml:"report_line_budget"`

	Interrupt interruptFile `toml:"interrupt"`
}

type interruptFile struct {
	Weight                int  `toml:"weight"`
	CanInterruptOwnDebate bool `toml:"can_interrupt_own_debate"`
}

// TierScope holds the disclosure rules for one tier.
type TierScope struct {
	Scope         string
	CanDiscuss    string
	CannotDiscuss string
}

// InterruptSpec controls debate interrupt eligibility.
type InterruptSpec struct {
	// Weight 0 excludes the advisor from interrupt selection entirely.
	Weight                int
	CanInterruptOwnDebate bool
}

// Spec is the fully decoded identity record for one advisor.
type Spec struct {
	Dir         string
	FirstName   string
	FamilyName  string
	Nickname    string
	DisplayName string
	Profession  string

	DomainPrimary  string
	DomainKeywords []string

	// Tiers is indexed by tier-1 (Tiers[0] is tier 1).
	Tiers [NumTiers]TierScope
	// Refusals holds the advisor's in-character out-of-tier refusal
	// lines, indexed by max tier minus one. A tier-3 advisor is never
	// blocked, so index 2 is never read.
	Refusals [NumTiers]string

	Interrupt InterruptSpec

	// ReportLineBudget bounds the world-state report (archival only).
	ReportLineBudget int

	// Fragments holds the parsed persona.md sections by category.
	Fragments map[string]string
}

// Archival reports whether this is the archival reporting advisor.
func (s *Spec) Archival() bool {
	return strings.EqualFold(s.FirstName, archivalName)
}

// MatchTokens returns the lowercased name tokens that trigger explicit
// routing.
func (s *Spec) MatchTokens() []string {
	tokens := []string{strings.ToLower(s.FirstName)}
	if s.FamilyName != "" {
		tokens = append(tokens, strings.ToLower(s.FamilyName))
	}
	if s.Nickname != "" {
		tokens = append(tokens, strings.ToLower(s.Nickname))
	}
	return tokens
}

// MaxTier returns the highest tier with a non-empty scope. An advisor
// with no scopes at all is tier-1-only.
func (s *Spec) MaxTier() int {
	max := 1
	for t := 0; t < NumTiers; t++ {
		if strings.TrimSpace(s.Tiers[t].Scope) != "" {
			max = t + 1
		}
	}
	return max
}

// Fragment returns the persona.md section for a category, or "" when
// the advisor has none.
func (s *Spec) Fragment(category string) string {
	return s.Fragments[category]
}

func decodeSpec(path, dir, dirName string) (*Spec, error) {
	var f specFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, err
	}

	display := f.DisplayName
	if display == "" {
		display = dirName
	}

	spec := &Spec{
		Dir:           dir,
		FirstName:     f.FirstName,
		FamilyName:    f.FamilyName,
		Nickname:      f.Nickname,
		DisplayName:   display,
		Profession:    f.Profession,
		DomainPrimary: f.DomainPrimary,
		Tiers: [NumTiers]TierScope{
			{Scope: f.Tier1Scope, CanDiscuss: f.Tier1CanDiscuss, CannotDiscuss: f.Tier1CannotDiscuss},
			{Scope: f.Tier2Scope, CanDiscuss: f.Tier2CanDiscuss, CannotDiscuss: f.Tier2CannotDiscuss},
			{Scope: f.Tier3Scope, CanDiscuss: f.Tier3CanDiscuss, CannotDiscuss: f.Tier3CannotDiscuss},
		},
		Interrupt: InterruptSpec{
			Weight:                f.Interrupt.Weight,
			CanInterruptOwnDebate: f.Interrupt.CanInterruptOwnDebate,
		},
		ReportLineBudget: f.ReportLineBudget,
		Fragments:        map[string]string{},
	}
	spec.Refusals[0] = f.ErrorOutOfTier1
	spec.Refusals[1] = f.ErrorOutOfTier2

	for _, kw := range strings.Split(f.DomainKeywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			spec.DomainKeywords = append(spec.DomainKeywords, strings.ToLower(kw))
		}
	}
	return spec, nil
}
