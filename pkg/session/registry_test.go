package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

type fakeLookup struct {
	index map[string]string
	err   error
}

func (f *fakeLookup) GetActiveSessionForPlayer(_ context.Context, playerID string) (string, error) {
	return f.index[playerID], f.err
}

func newSession(id string) *GameSession {
	return &GameSession{
		ID:       id,
		GameType: "chess",
		Players: [2]game.Player{
			{ID: "ada", Side: game.SideFirst},
			{ID: "host", Side: game.SideSecond, IsHost: true},
		},
		StartedAt: time.Now(),
	}
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry(nil)
	s := newSession("s-1")

	if err := r.Add(s); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add(s); err == nil {
		t.Error("expected duplicate Add() to fail")
	}

	if got, ok := r.Get("s-1"); !ok || got != s {
		t.Errorf("Get() = %v, %v", got, ok)
	}

	if _, ok := r.Remove("s-1"); !ok {
		t.Error("first Remove() should find the session")
	}
	if _, ok := r.Remove("s-1"); ok {
		t.Error("second Remove() should find nothing")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d", r.Count())
	}
}

func TestRegistry_FindByPlayer(t *testing.T) {
	lookup := &fakeLookup{index: map[string]string{"ada": "s-1", "bob": "gone"}}
	r := NewRegistry(lookup)
	_ = r.Add(newSession("s-1"))
	ctx := context.Background()

	s, err := r.FindByPlayer(ctx, "ada")
	if err != nil || s == nil || s.ID != "s-1" {
		t.Errorf("FindByPlayer(ada) = %v, %v", s, err)
	}

	if s, _ := r.FindByPlayer(ctx, "bob"); s != nil {
		t.Error("stale index entry should resolve to no session")
	}
	if s, _ := r.FindByPlayer(ctx, "cleo"); s != nil {
		t.Error("unknown player should have no session")
	}

	lookup.err = errors.New("redis down")
	if _, err := r.FindByPlayer(ctx, "ada"); err == nil {
		t.Error("expected lookup error to propagate")
	}
}

func TestRegistry_ShutdownStopsClocks(t *testing.T) {
	r := NewRegistry(nil)
	var flagged int32

	for _, id := range []string{"s-1", "s-2"} {
		s := newSession(id)
		s.AttachClock(clock.Start(clock.Config{
			TimeControl: clock.TimeControl{Initial: 100 * time.Millisecond},
			Guard:       s.Active,
			OnFlag:      func(game.Side) { atomic.AddInt32(&flagged, 1) },
		}))
		_ = r.Add(s)
	}

	if n := r.Shutdown(); n != 2 {
		t.Errorf("Shutdown() = %d, expected 2", n)
	}
	if r.Count() != 0 {
		t.Errorf("Count() after shutdown = %d", r.Count())
	}

	time.Sleep(700 * time.Millisecond)
	if n := atomic.LoadInt32(&flagged); n != 0 {
		t.Errorf("%d clocks fired after shutdown", n)
	}
}

func TestGameSession_Helpers(t *testing.T) {
	s := newSession("s-1")

	if !s.Active() || !s.MarkEnded() || s.MarkEnded() || s.Active() {
		t.Error("MarkEnded() should flip exactly once")
	}
	if p, ok := s.Player("host"); !ok || !p.IsHost {
		t.Errorf("Player(host) = %+v, %v", p, ok)
	}
	if s.PlayerOnSide(game.SideSecond).ID != "host" {
		t.Error("PlayerOnSide(second) should be the host")
	}
	if s.HasSynthetic() {
		t.Error("no synthetic seats expected")
	}
	if s.StopClock() {
		t.Error("StopClock() on untimed session should report false")
	}
}
