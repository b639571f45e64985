// Package fragment performs just-in-time persona fragment injection.
// Only the slices of an advisor's persona document relevant to the
// current query, co-present advisors, and gate outcome are returned.
package fragment

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"council/internal/actor"
	"council/internal/gate"
)

// Fragment categories synthesized here rather than read from the
// persona document.
const (
	CategoryBase      = "base"
	CategoryTierHedge = "tier_hedge"
)

// HedgeInstruction is appended when the gate result is hedged.
const HedgeInstruction = "[NOTE: You are operating at the edge of your expertise for this tier. " +
	"Acknowledge the gap honestly. Flag what you know, what you don't, " +
	"and what would be needed to advise with full confidence.]"

// alwaysInjected persona categories for non-spectator fetches.
var alwaysInjected = []string{actor.FragmentVoice, actor.FragmentLimits}

// Fragment is one categorized slice of persona content.
type Fragment struct {
	Category string
	// Subject is set for relationships fragments only: the co-present
	// advisor the sub-section is about.
	Subject string
	Content string
}

// FetchResult is the ordered fragment list for one advisor.
type FetchResult struct {
	Spec      *actor.Spec
	Fragments []Fragment
}

// Assembled joins all fragments for prompt injection.
func (r FetchResult) Assembled() string {
	parts := make([]string, len(r.Fragments))
	for i, f := range r.Fragments {
		parts[i] = f.Content
	}
	return strings.Join(parts, "\n\n")
}

// Assembler fetches fragments for active advisors.
type Assembler struct {
	logger *zap.Logger
}

// New constructs an Assembler.
func New(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Request describes one fetch.
type Request struct {
	Spec       *actor.Spec
	Query      string
	Confidence gate.Confidence
	// OtherNames are display names of the other active advisors.
	OtherNames []string
	// SpectatorOnly restricts the fetch to the spectator fragment.
	SpectatorOnly bool
}

// Fetch returns the fragments relevant to the request, in injection
// order: base, voice, limits, domain, relationships, tier hedge.
func (a *Assembler) Fetch(req Request) FetchResult {
	result := FetchResult{Spec: req.Spec}
	spec := req.Spec

	if req.SpectatorOnly {
		if content := spec.Fragment(actor.FragmentSpectator); content != "" {
			result.Fragments = append(result.Fragments, Fragment{
				Category: actor.FragmentSpectator, Content: content,
			})
		} else {
			a.logger.Warn("no spectator fragment found",
				zap.String("advisor", spec.DisplayName))
		}
		return result
	}

	result.Fragments = append(result.Fragments, buildBase(spec))

	for _, cat := range alwaysInjected {
		if content := spec.Fragment(cat); content != "" {
			result.Fragments = append(result.Fragments, Fragment{Category: cat, Content: content})
		} else if !spec.Archival() {
			// The archival advisor has no personality voice.
			a.logger.Warn("missing persona fragment",
				zap.String("advisor", spec.DisplayName), zap.String("category", cat))
		}
	}

	if domainMatch(req.Query, spec) {
		if content := spec.Fragment(actor.FragmentDomain); content != "" {
			result.Fragments = append(result.Fragments, Fragment{
				Category: actor.FragmentDomain, Content: content,
			})
		}
	}

	result.Fragments = append(result.Fragments, relationshipFragments(spec, req.OtherNames)...)

	if req.Confidence == gate.Hedged {
		result.Fragments = append(result.Fragments, Fragment{
			Category: CategoryTierHedge, Content: HedgeInstruction,
		})
	}

	return result
}

// buildBase synthesizes the minimal identity fragment from spec fields.
// It never draws on free-text personality content, so contexts that
// only need identification do not leak the full persona.
func buildBase(spec *actor.Spec) Fragment {
	parts := []string{fmt.Sprintf("Name: %s", spec.DisplayName)}
	if spec.Nickname != "" {
		parts = append(parts, fmt.Sprintf("Known as: %s", spec.Nickname))
	}
	if spec.Profession != "" {
		parts = append(parts, fmt.Sprintf("Role: %s", spec.Profession))
	}
	if spec.DomainPrimary != "" {
		parts = append(parts, fmt.Sprintf("Domain: %s", spec.DomainPrimary))
	}
	return Fragment{Category: CategoryBase, Content: strings.Join(parts, "\n")}
}

func domainMatch(query string, spec *actor.Spec) bool {
	queryLower := strings.ToLower(query)
	for _, kw := range spec.DomainKeywords {
		if strings.Contains(queryLower, kw) {
			return true
		}
	}
	return false
}

// relationshipFragments extracts the sub-section keyed by each
// co-present advisor's first name token (uppercased). When an advisor
// has no named sub-section, the full relationships block is injected
// once and the search stops, so the block never appears twice.
func relationshipFragments(spec *actor.Spec, otherNames []string) []Fragment {
	relContent := spec.Fragment(actor.FragmentRelationships)
	if relContent == "" || len(otherNames) == 0 {
		return nil
	}

	var fragments []Fragment
	for _, name := range otherNames {
		fields := strings.Fields(name)
		if len(fields) == 0 {
			continue
		}
		sub := subSection(relContent, strings.ToUpper(fields[0]))
		if sub != "" {
			fragments = append(fragments, Fragment{
				Category: actor.FragmentRelationships,
				Subject:  name,
				Content:  strings.TrimSpace(sub),
			})
		} else {
			fragments = append(fragments, Fragment{
				Category: actor.FragmentRelationships,
				Content:  relContent,
			})
			break
		}
	}
	return fragments
}

// subSectionBoundary marks the start of the next advisor's sub-section:
// a line opening with an uppercased first-name token.
var subSectionBoundary = regexp.MustCompile(`\n[A-Z]{2,}`)

// subSection returns the slice of content from the first occurrence of
// key up to the next sub-section boundary, or "" when key is absent.
func subSection(content, key string) string {
	start := strings.Index(content, key)
	if start < 0 {
		return ""
	}
	rest := content[start:]
	if loc := subSectionBoundary.FindStringIndex(rest); loc != nil {
		return rest[:loc[0]]
	}
	return rest
}
