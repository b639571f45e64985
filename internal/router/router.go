// Package router resolves a free-text query to zero, one, or two
// advisors and a flow classification. Explicit name matching runs
// first; implicit similarity routing only runs when no name matched.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"council/internal/actor"
	"council/internal/flow"
)

// Similarity thresholds for implicit routing.
const (
	// MinScore is the floor below which a candidate is discarded.
	MinScore = 0.3
	// MainScore promotes a candidate from support to main.
	MainScore = 0.7
)

// Role is a matched advisor's standing in the turn.
type Role string

const (
	RoleMain    Role = "main"
	RoleSupport Role = "support"
)

// Match is one resolved advisor.
type Match struct {
	Spec *actor.Spec
	Role Role
	// Similarity is set for implicit matches only.
	Similarity float64
}

// Result is the outcome of routing one query.
type Result struct {
	Flow    flow.Type
	Matches []Match
	// Note carries the human-readable reason for ambiguous, too_vague,
	// too_broad, and no_match outcomes.
	Note string
}

// Router resolves queries against a fixed roster.
type Router struct {
	registry *actor.Registry
	oracle   Oracle
	logger   *zap.Logger
}

// New constructs a Router. The oracle is a required explicit handle;
// tests pass a stub.
func New(registry *actor.Registry, oracle Oracle, logger *zap.Logger) *Router {
	return &Router{registry: registry, oracle: oracle, logger: logger}
}

// Resolve classifies the query. Explicit phase first: any advisor name
// token appearing as a whole query token matches. One match is
// standard; two or more is ambiguous (the advisors sort it out in
// character). With no explicit match, every advisor domain is scored by
// the oracle and the candidate set above MinScore decides the flow.
func (r *Router) Resolve(ctx context.Context, query string) (Result, error) {
	explicit := r.explicitMatch(query)

	if len(explicit) == 1 {
		return Result{
			Flow:    flow.Standard,
			Matches: []Match{{Spec: explicit[0], Role: RoleMain}},
		}, nil
	}
	if len(explicit) >= 2 {
		names := displayNames(explicit)
		matches := make([]Match, len(explicit))
		for i, s := range explicit {
			matches[i] = Match{Spec: s, Role: RoleMain}
		}
		r.logger.Info("explicit routing ambiguous",
			zap.String("query", query), zap.Strings("advisors", names))
		return Result{
			Flow:    flow.Ambiguous,
			Matches: matches,
			Note:    fmt.Sprintf("Ambiguous: matches %s", strings.Join(names, ", ")),
		}, nil
	}

	return r.implicitMatch(ctx, query)
}

// explicitMatch returns all advisors whose first name, family name, or
// nickname appears as a token in the query, in registry order.
func (r *Router) explicitMatch(query string) []*actor.Spec {
	tokens := map[string]bool{}
	for _, raw := range strings.Fields(strings.ToLower(query)) {
		tokens[strings.TrimRight(raw, ".,!?;:")] = true
	}

	var matched []*actor.Spec
	for _, spec := range r.registry.All() {
		for _, t := range spec.MatchTokens() {
			if tokens[t] {
				matched = append(matched, spec)
				break
			}
		}
	}
	return matched
}

type scored struct {
	spec  *actor.Spec
	score float64
}

func (r *Router) implicitMatch(ctx context.Context, query string) (Result, error) {
	var candidates []scored
	for _, spec := range r.registry.All() {
		if len(spec.DomainKeywords) == 0 {
			continue
		}
		domain := strings.Join(spec.DomainKeywords, ", ")
		score, err := r.oracle.Score(ctx, query, domain)
		if err != nil {
			// Oracle failure makes routing impossible; surface it as a
			// terminal note rather than guessing an advisor.
			r.logger.Error("similarity oracle failed", zap.Error(err))
			return Result{
				Flow: flow.NoMatch,
				Note: "The council cannot hear you right now.",
			}, nil
		}
		if score >= MinScore {
			candidates = append(candidates, scored{spec: spec, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) == 0 {
		return Result{
			Flow: flow.TooVague,
			Note: "Query matched no advisor domain. Please be more specific.",
		}, nil
	}

	if len(candidates) >= 3 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.spec.DisplayName
		}
		return Result{
			Flow: flow.TooBroad,
			Note: fmt.Sprintf("Query too broad: matches %s. Narrow your scope.", strings.Join(names, ", ")),
		}, nil
	}

	// One or two candidates: mains first, then supports.
	var matches []Match
	mains := 0
	for _, c := range candidates {
		if c.score >= MainScore {
			mains++
			matches = append(matches, Match{Spec: c.spec, Role: RoleMain, Similarity: c.score})
		}
	}
	for _, c := range candidates {
		if c.score < MainScore {
			matches = append(matches, Match{Spec: c.spec, Role: RoleSupport, Similarity: c.score})
		}
	}

	// Two mains or two supports force a debate; a clear main with one
	// support stays standard with the main leading.
	f := flow.Standard
	if len(matches) == 2 && mains != 1 {
		f = flow.Debate
	}
	return Result{Flow: f, Matches: matches}, nil
}

func displayNames(specs []*actor.Spec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.DisplayName
	}
	return names
}
