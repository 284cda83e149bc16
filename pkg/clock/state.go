package clock

import (
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

// Mode is the tick granularity of a running clock.
type Mode int

const (
	ModeCoarse Mode = iota
	ModeFine
)

const (
	CoarseInterval = 500 * time.Millisecond
	FineInterval   = 100 * time.Millisecond
	// FineThreshold is the remaining time under which either side forces fine ticking.
	FineThreshold = 10 * time.Second
	// UpdateThrottle bounds timer-update notifications to two per second.
	UpdateThrottle = 500 * time.Millisecond
)

func (m Mode) String() string {
	if m == ModeFine {
		return "fine"
	}
	return "coarse"
}

// Interval returns the tick period for the mode.
func (m Mode) Interval() time.Duration {
	if m == ModeFine {
		return FineInterval
	}
	return CoarseInterval
}

func sideIndex(s game.Side) int {
	if s == game.SideSecond {
		return 1
	}
	return 0
}

func indexSide(i int) game.Side {
	if i == 1 {
		return game.SideSecond
	}
	return game.SideFirst
}

// Snapshot is the broadcastable view of a clock.
type Snapshot struct {
	RemainingMs map[game.Side]int64 `json:"remainingMs"`
	Active      game.Side           `json:"active"`
	Mode        string              `json:"mode"`
}

// State is the dual-countdown state machine. It is not safe for concurrent use;
// Clock serializes access to it.
type State struct {
	remaining [2]time.Duration
	increment time.Duration
	active    int
	mode      Mode
	lastTick  time.Time
	flagged   bool
}

// NewState starts a clock with the first seat to move. A budget already under
// FineThreshold starts in fine mode.
func NewState(tc TimeControl, now time.Time) *State {
	s := &State{
		remaining: [2]time.Duration{tc.Initial, tc.Initial},
		increment: tc.Increment,
		active:    0,
		mode:      ModeCoarse,
		lastTick:  now,
	}
	s.mode = s.DesiredMode()
	return s
}

// Advance charges elapsed time to the running side.
// It returns true exactly once: on the tick that drains the running side to zero.
func (s *State) Advance(now time.Time) bool {
	if s.flagged {
		return false
	}
	if elapsed := now.Sub(s.lastTick); elapsed > 0 {
		s.remaining[s.active] -= elapsed
	}
	s.lastTick = now

	if s.remaining[s.active] <= 0 {
		s.remaining[s.active] = 0
		s.flagged = true
		return true
	}
	return false
}

// Switch ends the mover's turn: charge time, credit the increment, start the opponent.
// It returns true if the mover had already run out before the move landed.
func (s *State) Switch(mover game.Side, now time.Time) bool {
	if s.Advance(now) {
		return true
	}
	idx := sideIndex(mover)
	if idx != s.active {
		return false
	}
	s.remaining[idx] += s.increment
	s.active = 1 - idx
	return false
}

// DesiredMode is fine while either side is under the threshold.
func (s *State) DesiredMode() Mode {
	if s.remaining[0] < FineThreshold || s.remaining[1] < FineThreshold {
		return ModeFine
	}
	return ModeCoarse
}

// Mode returns the current tick mode.
func (s *State) Mode() Mode { return s.mode }

// SetMode records a mode transition.
func (s *State) SetMode(m Mode) { s.mode = m }

// Flagged reports whether a side ran out of time.
func (s *State) Flagged() bool { return s.flagged }

// Active returns the side whose counter is running.
func (s *State) Active() game.Side { return indexSide(s.active) }

// Remaining returns a side's remaining time.
func (s *State) Remaining(side game.Side) time.Duration { return s.remaining[sideIndex(side)] }

// Snapshot renders the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		RemainingMs: map[game.Side]int64{
			game.SideFirst:  s.remaining[0].Milliseconds(),
			game.SideSecond: s.remaining[1].Milliseconds(),
		},
		Active: indexSide(s.active),
		Mode:   s.mode.String(),
	}
}
