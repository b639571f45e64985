package action

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Outcome is the result of validating and executing one action.
type Outcome struct {
	Executed  bool
	Ruling    Ruling
	Rationale string
	// Payload carries FETCH results back to the caller.
	Payload map[string]any
}

// Executor performs the actual business operations behind the two
// recognized verbs. Fetch is read-only; Update mutates campaign state.
type Executor interface {
	Fetch(ctx context.Context, body string) (map[string]any, error)
	Update(ctx context.Context, body string) error
}

// Validator gates write-type actions through the decision ledger.
type Validator struct {
	ledger   Ledger
	executor Executor
	logger   *zap.Logger
}

// NewValidator constructs a Validator.
func NewValidator(ledger Ledger, executor Executor, logger *zap.Logger) *Validator {
	return &Validator{ledger: ledger, executor: executor, logger: logger}
}

// Execute validates the action and runs it.
//
// FETCH executes directly with no ledger interaction. UPDATE is keyed
// by the normalized full action string: a prior denial replays as
// denied with no re-execution; a prior allowance replays as allowed
// with no re-execution; an unclaimed key executes and then records
// "allowed". A failed execution writes no ledger entry, so a later
// identical attempt can retry. Unknown verbs are denied outright with
// no ledger write.
func (v *Validator) Execute(ctx context.Context, action string) Outcome {
	verb, body := splitVerb(action)

	switch verb {
	case "FETCH":
		payload, err := v.executor.Fetch(ctx, body)
		if err != nil {
			v.logger.Error("fetch action failed", zap.String("body", body), zap.Error(err))
			return Outcome{Ruling: RulingFetch, Rationale: fmt.Sprintf("fetch failed: %v", err)}
		}
		v.logger.Info("fetch action executed", zap.String("body", body))
		return Outcome{Executed: true, Ruling: RulingFetch, Payload: payload}

	case "UPDATE":
		return v.executeUpdate(ctx, action, body)

	default:
		v.logger.Warn("unknown action verb rejected", zap.String("verb", verb))
		return Outcome{
			Ruling:    RulingDenied,
			Rationale: fmt.Sprintf("Unknown action verb: %s", verb),
		}
	}
}

func (v *Validator) executeUpdate(ctx context.Context, action, body string) Outcome {
	key := NormalizeKey(action)

	prior, found, err := v.ledger.Get(ctx, key)
	if err != nil {
		v.logger.Error("decision ledger read failed", zap.Error(err))
		return Outcome{Ruling: RulingDenied, Rationale: fmt.Sprintf("ledger unavailable: %v", err)}
	}
	if found {
		if prior == RulingDenied {
			v.logger.Warn("update denied by prior ruling", zap.String("key", key))
			return Outcome{
				Ruling:    RulingDenied,
				Rationale: fmt.Sprintf("Prior ruling denied this action: %s", action),
			}
		}
		// Identical action already allowed: replay the ruling without
		// re-executing business logic.
		v.logger.Info("update replayed from ledger", zap.String("key", key))
		return Outcome{Executed: true, Ruling: RulingAllowed}
	}

	// Execute before claiming. A durable "allowed" entry must only
	// exist for an action whose business logic actually ran; a failed
	// execution leaves the key unclaimed so a retry can run it.
	if err := v.executor.Update(ctx, body); err != nil {
		v.logger.Error("update action failed", zap.String("body", body), zap.Error(err))
		return Outcome{
			Executed:  false,
			Ruling:    RulingAllowed,
			Rationale: fmt.Sprintf("execution failed: %v", err),
		}
	}

	won, err := v.ledger.Claim(ctx, key, RulingAllowed)
	if err != nil {
		// The update ran but could not be recorded; report the real
		// outcome rather than inventing a denial.
		v.logger.Error("decision ledger write failed", zap.Error(err))
		return Outcome{
			Executed:  true,
			Ruling:    RulingAllowed,
			Rationale: fmt.Sprintf("ledger write failed: %v", err),
		}
	}
	if !won {
		// Another session executed the same action between Get and
		// Claim. The accepted race is a rare double execution; the
		// first writer's ruling stands for all future replays.
		v.logger.Warn("claim lost after execution", zap.String("key", key))
	}
	v.logger.Info("update action executed and logged", zap.String("key", key))
	return Outcome{Executed: true, Ruling: RulingAllowed}
}

func splitVerb(action string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(action))
	if len(parts) < 2 {
		return "UNKNOWN", action
	}
	return strings.ToUpper(parts[0]), strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(action), parts[0]))
}
