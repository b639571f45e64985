// Package flow defines the closed set of turn classifications.
// Every consumer (sampling config selection, presentation) switches
// exhaustively over Type so an unhandled classification is a visible
// error rather than a silent fallback.
package flow

import "fmt"

// Type classifies a single advisory turn.
type Type int

const (
	// Standard is a single-advisor answer, possibly with a support
	// advisor adding secondary colour.
	Standard Type = iota
	// Debate is a two-advisor exchange requiring user arbitration.
	Debate
	// DebateInterrupt is the abbreviated reply from a third advisor
	// breaking a stalled debate.
	DebateInterrupt
	// Ambiguous means two or more advisors matched the query by name.
	// The turn still runs; the advisors resolve it in character.
	Ambiguous
	// TooVague means no advisor domain scored above threshold.
	TooVague
	// TooBroad means three or more advisor domains matched.
	TooBroad
	// NoMatch means routing could not be performed at all.
	NoMatch
	// Spectator is a short reaction line with no name prefix.
	Spectator
	// Archive is a turn led by the archival reporting advisor.
	Archive
	// Error is a system-level failure message.
	Error
)

var names = map[Type]string{
	Standard:        "standard",
	Debate:          "debate",
	DebateInterrupt: "debate_interrupt",
	Ambiguous:       "ambiguous",
	TooVague:        "too_vague",
	TooBroad:        "too_broad",
	NoMatch:         "no_match",
	Spectator:       "spectator",
	Archive:         "archive",
	Error:           "error",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("flow(%d)", int(t))
}

// Terminal reports whether the flow ends the turn before any inference
// call is made.
func (t Type) Terminal() bool {
	switch t {
	case TooVague, TooBroad, NoMatch:
		return true
	default:
		return false
	}
}

// Parse maps a flow name back to its Type. Used when replaying
// transcripts; unknown names are an error, not a silent default.
func Parse(s string) (Type, error) {
	for t, name := range names {
		if name == s {
			return t, nil
		}
	}
	return Standard, fmt.Errorf("unknown flow type %q", s)
}
