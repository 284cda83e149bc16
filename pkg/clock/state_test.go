package clock

import (
	"testing"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

func TestState_AdvanceChargesActiveSide(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewState(TimeControl{Initial: time.Minute}, start)

	if s.Advance(start.Add(2 * time.Second)) {
		t.Fatal("Advance() flagged with time left")
	}
	if got := s.Remaining(game.SideFirst); got != 58*time.Second {
		t.Errorf("first remaining = %v, expected 58s", got)
	}
	if got := s.Remaining(game.SideSecond); got != time.Minute {
		t.Errorf("second remaining = %v, expected untouched", got)
	}
}

func TestState_SwitchCreditsIncrement(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewState(TimeControl{Initial: time.Minute, Increment: 2 * time.Second}, start)

	if s.Switch(game.SideFirst, start.Add(5*time.Second)) {
		t.Fatal("Switch() reported flag")
	}
	if got := s.Remaining(game.SideFirst); got != 57*time.Second {
		t.Errorf("first remaining = %v, expected 57s", got)
	}
	if s.Active() != game.SideSecond {
		t.Errorf("Active() = %s, expected second", s.Active())
	}

	// Off-turn switches change nothing.
	s.Switch(game.SideFirst, start.Add(6*time.Second))
	if s.Active() != game.SideSecond {
		t.Error("off-turn Switch() moved the turn")
	}
	if got := s.Remaining(game.SideSecond); got != 59*time.Second {
		t.Errorf("second remaining = %v, expected 59s", got)
	}
}

func TestState_FlagFiresOnce(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewState(TimeControl{Initial: time.Second}, start)

	if !s.Advance(start.Add(1500 * time.Millisecond)) {
		t.Fatal("Advance() did not flag")
	}
	if s.Remaining(game.SideFirst) != 0 {
		t.Errorf("remaining not clamped: %v", s.Remaining(game.SideFirst))
	}
	if s.Advance(start.Add(2 * time.Second)) {
		t.Error("Advance() flagged twice")
	}
	if !s.Flagged() {
		t.Error("Flagged() = false")
	}
}

func TestState_DesiredMode(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewState(TimeControl{Initial: 15 * time.Second}, start)

	if s.Mode() != ModeCoarse {
		t.Fatalf("initial mode = %s", s.Mode())
	}
	if s.DesiredMode() != ModeCoarse {
		t.Errorf("DesiredMode() = %s with 15s left", s.DesiredMode())
	}

	s.Advance(start.Add(6 * time.Second))
	if s.DesiredMode() != ModeFine {
		t.Errorf("DesiredMode() = %s with 9s left", s.DesiredMode())
	}
}

func TestState_ShortBudgetStartsFine(t *testing.T) {
	s := NewState(TimeControl{Initial: 5 * time.Second}, time.Unix(0, 0))
	if s.Mode() != ModeFine {
		t.Errorf("initial mode = %s with a 5s budget, expected fine", s.Mode())
	}
}

func TestState_Snapshot(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewState(TimeControl{Initial: time.Minute}, start)
	s.Advance(start.Add(time.Second))

	snap := s.Snapshot()
	if snap.RemainingMs[game.SideFirst] != 59000 || snap.RemainingMs[game.SideSecond] != 60000 {
		t.Errorf("Snapshot() remaining = %v", snap.RemainingMs)
	}
	if snap.Active != game.SideFirst || snap.Mode != "coarse" {
		t.Errorf("Snapshot() = %+v", snap)
	}
}
