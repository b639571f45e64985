// Package gate enforces the hard tier boundary before any inference
// call. Each matched advisor is checked independently; the archival
// advisor is exempt because it has no opinion content to gate.
package gate

import (
	"fmt"

	"go.uber.org/zap"

	"council/internal/actor"
)

// Confidence is the per-advisor capability outcome.
type Confidence string

const (
	// Full means the advisor operates at or above the current tier.
	Full Confidence = "full"
	// Hedged means the advisor is one tier short; it answers, but the
	// prompt gains a hedging instruction.
	Hedged Confidence = "hedged"
	// Blocked means the advisor is two or more tiers short and does
	// not answer this turn.
	Blocked Confidence = "blocked"
)

// Result is a per-advisor gate decision.
type Result struct {
	Spec       *actor.Spec
	Confidence Confidence
	// Refusal is the in-character line shown when Blocked.
	Refusal string
}

// Gate evaluates advisor eligibility at a session tier.
type Gate struct {
	logger *zap.Logger
}

// New constructs a Gate.
func New(logger *zap.Logger) *Gate {
	return &Gate{logger: logger}
}

// Check gates one advisor at the current tier.
func (g *Gate) Check(spec *actor.Spec, currentTier int) Result {
	if spec.Archival() {
		return Result{Spec: spec, Confidence: Full}
	}

	maxTier := spec.MaxTier()
	gap := currentTier - maxTier

	switch {
	case gap <= 0:
		return Result{Spec: spec, Confidence: Full}
	case gap == 1:
		g.logger.Info("advisor one tier below current, hedged",
			zap.String("advisor", spec.DisplayName),
			zap.Int("max_tier", maxTier), zap.Int("current_tier", currentTier))
		return Result{Spec: spec, Confidence: Hedged}
	default:
		refusal := ""
		if maxTier >= 1 && maxTier <= actor.NumTiers {
			refusal = spec.Refusals[maxTier-1]
		}
		if refusal == "" {
			refusal = fmt.Sprintf("%s cannot advise at Tier %d.", spec.DisplayName, currentTier)
		}
		g.logger.Info("advisor blocked by tier gate",
			zap.String("advisor", spec.DisplayName),
			zap.Int("max_tier", maxTier), zap.Int("current_tier", currentTier))
		return Result{Spec: spec, Confidence: Blocked, Refusal: refusal}
	}
}

// CheckAll gates every advisor independently.
func (g *Gate) CheckAll(specs []*actor.Spec, currentTier int) []Result {
	results := make([]Result, len(specs))
	for i, s := range specs {
		results[i] = g.Check(s, currentTier)
	}
	return results
}
