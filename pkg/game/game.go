package game

import "errors"

// Kind is the closed set of game categories the orchestrator knows how to schedule.
type Kind string

const (
	// KindDuel is a turn-based two-player game that needs a negotiated opponent.
	KindDuel Kind = "duel"
	// KindChance is a single-shot game played against the host.
	KindChance Kind = "chance"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindDuel || k == KindChance
}

// Side identifies the seat a player occupies on the game surface.
type Side string

const (
	SideFirst  Side = "first"
	SideSecond Side = "second"
)

// Opposite returns the other seat.
func (s Side) Opposite() Side {
	if s == SideFirst {
		return SideSecond
	}
	return SideFirst
}

var (
	// ErrUnknownGameType is returned when no rules factory is registered for a game type.
	ErrUnknownGameType = errors.New("unknown game type")
	// ErrNotParticipant is returned by rules engines when the actor is not seated.
	ErrNotParticipant = errors.New("actor is not a participant")
)

// Player describes one participant of a session.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Side        Side   `json:"side"`
	IsHost      bool   `json:"isHost"`
	// Synthetic marks a host that was seated automatically rather than by an explicit accept.
	Synthetic bool `json:"synthetic"`
}

// MoveResult is what a rules engine reports after applying input.
type MoveResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Terminal bool   `json:"terminal"`
	WinnerID string `json:"winnerId,omitempty"`
	Draw     bool   `json:"draw"`
}

// Rules is the opaque handle to a per-game rules engine.
// The orchestrator never looks inside; it only forwards input and reads terminal results.
type Rules interface {
	ApplyMove(actorID, input string) MoveResult
	PublicState() map[string]interface{}
	Resign(actorID string) MoveResult
}

// Options carries per-start tweaks forwarded to a rules factory.
type Options map[string]interface{}

// GetString retrieves a string option with a default.
func (o Options) GetString(key, defaultValue string) string {
	if val, ok := o[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// RulesFactory builds a rules engine for a freshly seated pair of players.
type RulesFactory func(players [2]Player, opts Options) (Rules, error)
