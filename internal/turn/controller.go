// Package turn sequences one advisory turn through routing, gating,
// fragment fetch, prompt assembly, inference, parsing, action
// validation, and transcript commit. The Controller is the only owner
// of cross-turn mutable state: the rolling history and the debate-turn
// counter.
package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"council/internal/action"
	"council/internal/actor"
	"council/internal/flow"
	"council/internal/fragment"
	"council/internal/gate"
	"council/internal/llm"
	"council/internal/parse"
	"council/internal/present"
	"council/internal/prompt"
	"council/internal/router"
	"council/internal/transcript"
)

const (
	// historyCap bounds the rolling history to the most recent turns.
	historyCap = 20

	// debateNudgeAt appends an editorial push for a decision.
	debateNudgeAt = 3
	// debateInterruptAt breaks the debate with a third advisor.
	debateInterruptAt = 5

	debateNudge = "Positions are clear. A decision is needed."
	noAdvisor   = "No advisor can help with this at the current tier."
)

// Inference is the outbound call boundary; llm.Client satisfies it.
type Inference interface {
	Complete(ctx context.Context, p prompt.AssembledPrompt, f flow.Type) llm.Result
}

// SessionState is the session-scoped mutable state. Owned exclusively
// by the Controller and never shared across sessions.
type SessionState struct {
	SessionID   string
	Date        string
	Tier        int
	History     []prompt.HistoryTurn
	DebateTurns int
}

// interruptCandidate is one precomputed entry in the interrupt pool.
type interruptCandidate struct {
	spec   *actor.Spec
	weight int
}

// Controller drives the turn pipeline.
type Controller struct {
	registry   *actor.Registry
	router     *router.Router
	gate       *gate.Gate
	fragments  *fragment.Assembler
	builder    *prompt.Builder
	inference  Inference
	parser     *parse.Parser
	validator  *action.Validator
	transcript *transcript.Writer
	logger     *zap.Logger

	state SessionState

	// interruptPool is computed once per session; per-call filtering
	// only removes advisors currently debating.
	interruptPool []interruptCandidate

	// pick selects an index from a weight slice; swapped in tests.
	pick func(weights []int) int
}

// Config wires a Controller.
type Config struct {
	Registry   *actor.Registry
	Router     *router.Router
	Gate       *gate.Gate
	Fragments  *fragment.Assembler
	Builder    *prompt.Builder
	Inference  Inference
	Parser     *parse.Parser
	Validator  *action.Validator
	Transcript *transcript.Writer
	Logger     *zap.Logger

	Date string
	Tier int
}

// New constructs a Controller and precomputes the interrupt pool.
func New(cfg Config) *Controller {
	c := &Controller{
		registry:   cfg.Registry,
		router:     cfg.Router,
		gate:       cfg.Gate,
		fragments:  cfg.Fragments,
		builder:    cfg.Builder,
		inference:  cfg.Inference,
		parser:     cfg.Parser,
		validator:  cfg.Validator,
		transcript: cfg.Transcript,
		logger:     cfg.Logger,
		state: SessionState{
			SessionID: uuid.NewString(),
			Date:      cfg.Date,
			Tier:      cfg.Tier,
		},
		pick: weightedPick,
	}
	for _, spec := range cfg.Registry.All() {
		if spec.Interrupt.Weight > 0 {
			c.interruptPool = append(c.interruptPool, interruptCandidate{
				spec:   spec,
				weight: spec.Interrupt.Weight,
			})
		}
	}
	return c
}

// SessionID returns the session identifier.
func (c *Controller) SessionID() string { return c.state.SessionID }

// Turn processes one user query and returns the formatted output. An
// error is returned only when the turn outcome could not be durably
// recorded.
func (c *Controller) Turn(ctx context.Context, query string) (string, error) {
	routed, err := c.router.Resolve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("route query: %w", err)
	}

	if routed.Flow.Terminal() {
		c.state.DebateTurns = 0
		note := routed.Note
		if note == "" {
			note = "The council does not respond."
		}
		return present.StageDirection(note), nil
	}

	// Gate each matched advisor independently; blocked advisors drop
	// out in character without aborting the turn.
	specs := make([]*actor.Spec, len(routed.Matches))
	for i, m := range routed.Matches {
		specs[i] = m.Spec
	}
	gated := c.gate.CheckAll(specs, c.state.Tier)

	var outputLines []string
	var active []gate.Result
	for _, g := range gated {
		if g.Confidence == gate.Blocked {
			outputLines = append(outputLines,
				fmt.Sprintf("%s: %s", strings.ToUpper(g.Spec.DisplayName), g.Refusal))
		} else {
			active = append(active, g)
		}
	}

	if len(active) == 0 {
		c.state.DebateTurns = 0
		if len(outputLines) == 0 {
			return present.StageDirection(noAdvisor), nil
		}
		return strings.Join(outputLines, "\n\n"), nil
	}

	// A debate that lost an advisor to blocking collapses to standard.
	turnFlow := routed.Flow
	if turnFlow == flow.Debate && len(active) == 1 {
		turnFlow = flow.Standard
	}

	if turnFlow == flow.Debate {
		c.state.DebateTurns++
		switch {
		case c.state.DebateTurns == debateNudgeAt:
			outputLines = append(outputLines, present.StageDirection(debateNudge))
		case c.state.DebateTurns >= debateInterruptAt:
			if line, ok := c.interruptTurn(ctx, query, active); ok {
				outputLines = append(outputLines, line)
				c.state.DebateTurns = 0
				return strings.Join(outputLines, "\n\n"), nil
			}
		}
	} else {
		c.state.DebateTurns = 0
	}

	llmFlow := c.llmFlow(turnFlow, active)

	fetches := c.fetchAll(query, active)

	assembled, err := c.builder.Build(ctx, fetches, query, c.state.History, c.state.Date)
	if err != nil {
		return "", fmt.Errorf("assemble prompt: %w", err)
	}

	result := c.inference.Complete(ctx, assembled, llmFlow)
	parsed := c.parser.Parse(result)

	var outcome *action.Outcome
	if parsed.Action != "" && parsed.ActionValid {
		o := c.validator.Execute(ctx, parsed.Action)
		outcome = &o
		if !o.Executed && o.Rationale != "" {
			outputLines = append(outputLines,
				present.StageDirection("Action rejected: "+o.Rationale))
		}
	}

	speaker := active[0].Spec.DisplayName

	if err := c.transcript.Commit(ctx, transcript.Turn{
		SessionID: c.state.SessionID,
		Flow:      llmFlow,
		Tier:      c.state.Tier,
		Speaker:   speaker,
		Query:     query,
		Reply:     parsed,
		Action:    outcome,
	}); err != nil {
		// A turn whose outcome cannot be durably recorded must not be
		// treated as succeeded.
		return "", fmt.Errorf("commit turn: %w", err)
	}

	c.appendHistory(query, speaker, parsed.Chat)

	outputLines = append(outputLines, present.Render(parsed, llmFlow, speaker))
	return strings.Join(outputLines, "\n\n"), nil
}

// Spectate generates a short reaction line from a named advisor using
// only its spectator fragment. No history or transcript updates.
func (c *Controller) Spectate(ctx context.Context, firstName, query string) (string, error) {
	spec, ok := c.registry.ByFirstName(firstName)
	if !ok {
		return "", fmt.Errorf("no advisor named %q", firstName)
	}

	fetch := c.fragments.Fetch(fragment.Request{
		Spec:          spec,
		Query:         query,
		Confidence:    gate.Full,
		SpectatorOnly: true,
	})
	if len(fetch.Fragments) == 0 {
		return "", fmt.Errorf("%s has no spectator content", spec.DisplayName)
	}

	assembled, err := c.builder.Build(ctx, []fragment.FetchResult{fetch}, query, nil, c.state.Date)
	if err != nil {
		return "", fmt.Errorf("assemble prompt: %w", err)
	}
	result := c.inference.Complete(ctx, assembled, flow.Spectator)
	parsed := c.parser.Parse(result)
	return present.Render(parsed, flow.Spectator, ""), nil
}

// llmFlow picks the sampling flow: archival presence dominates, then
// debate, then the routed classification.
func (c *Controller) llmFlow(turnFlow flow.Type, active []gate.Result) flow.Type {
	for _, g := range active {
		if g.Spec.Archival() {
			return flow.Archive
		}
	}
	if turnFlow == flow.Debate {
		return flow.Debate
	}
	return turnFlow
}

func (c *Controller) fetchAll(query string, active []gate.Result) []fragment.FetchResult {
	names := make([]string, len(active))
	for i, g := range active {
		names[i] = g.Spec.DisplayName
	}

	fetches := make([]fragment.FetchResult, 0, len(active))
	for i, g := range active {
		others := make([]string, 0, len(names)-1)
		for j, n := range names {
			if j != i {
				others = append(others, n)
			}
		}
		fetches = append(fetches, c.fragments.Fetch(fragment.Request{
			Spec:       g.Spec,
			Query:      query,
			Confidence: g.Confidence,
			OtherNames: others,
		}))
	}
	return fetches
}

// interruptTurn generates the abbreviated interrupt reply. The
// triggering query is not processed through the debating advisors this
// turn. Returns false when no advisor is eligible to interrupt.
func (c *Controller) interruptTurn(ctx context.Context, query string, debating []gate.Result) (string, bool) {
	interruptor := c.selectInterruptor(debating)
	if interruptor == nil {
		return "", false
	}
	c.logger.Info("debate interrupted",
		zap.String("advisor", interruptor.DisplayName),
		zap.Int("debate_turns", c.state.DebateTurns))

	fetch := c.fragments.Fetch(fragment.Request{
		Spec:       interruptor,
		Query:      query,
		Confidence: gate.Full,
	})
	assembled, err := c.builder.Build(ctx,
		[]fragment.FetchResult{fetch}, query, c.state.History, c.state.Date)
	if err != nil {
		c.logger.Error("interrupt prompt assembly failed", zap.Error(err))
		return "", false
	}

	result := c.inference.Complete(ctx, assembled, flow.DebateInterrupt)
	parsed := c.parser.Parse(result)
	return present.Render(parsed, flow.DebateInterrupt, interruptor.DisplayName), true
}

// selectInterruptor draws weighted-random from the precomputed pool,
// excluding advisors currently debating unless they may interrupt
// their own debate.
func (c *Controller) selectInterruptor(debating []gate.Result) *actor.Spec {
	debatingNames := map[string]bool{}
	for _, g := range debating {
		debatingNames[strings.ToLower(g.Spec.FirstName)] = true
	}

	var eligible []interruptCandidate
	var weights []int
	for _, cand := range c.interruptPool {
		if debatingNames[strings.ToLower(cand.spec.FirstName)] && !cand.spec.Interrupt.CanInterruptOwnDebate {
			continue
		}
		eligible = append(eligible, cand)
		weights = append(weights, cand.weight)
	}
	if len(eligible) == 0 {
		return nil
	}
	return eligible[c.pick(weights)].spec
}

func (c *Controller) appendHistory(query, speaker, chat string) {
	c.state.History = append(c.state.History,
		prompt.HistoryTurn{Role: "user", Speaker: "User", Content: query},
		prompt.HistoryTurn{Role: "advisor", Speaker: speaker, Content: chat},
	)
	if over := len(c.state.History) - historyCap; over > 0 {
		c.state.History = c.state.History[over:]
	}
}
