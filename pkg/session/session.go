package session

import (
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

// GameSession is one live game on the surface.
type GameSession struct {
	ID           string
	GameType     string
	Kind         game.Kind
	Players      [2]game.Player
	Rules        game.Rules
	StartedAt    time.Time
	TriggerType  string
	TriggerValue string
	TimeControl  *clock.TimeControl

	clock *clock.Clock
	ended atomic.Bool
}

// Active reports whether the session is still running.
func (s *GameSession) Active() bool { return !s.ended.Load() }

// MarkEnded flips the session to ended. Only the first call returns true.
func (s *GameSession) MarkEnded() bool { return s.ended.CompareAndSwap(false, true) }

// AttachClock binds a running clock to the session.
func (s *GameSession) AttachClock(c *clock.Clock) { s.clock = c }

// Clock returns the session clock, or nil for untimed games.
func (s *GameSession) Clock() *clock.Clock { return s.clock }

// StopClock tears the clock down. Safe to call any number of times.
func (s *GameSession) StopClock() bool {
	if s.clock == nil {
		return false
	}
	return s.clock.Stop()
}

// Player returns the seated player with the given id.
func (s *GameSession) Player(id string) (game.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return game.Player{}, false
}

// PlayerOnSide returns the player seated on side.
func (s *GameSession) PlayerOnSide(side game.Side) game.Player {
	if s.Players[0].Side == side {
		return s.Players[0]
	}
	return s.Players[1]
}

// HasSynthetic reports whether either seat was filled automatically.
func (s *GameSession) HasSynthetic() bool {
	return s.Players[0].Synthetic || s.Players[1].Synthetic
}
