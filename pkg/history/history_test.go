package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func outcome(id, winner string, endedAt time.Time) *Outcome {
	return &Outcome{
		SessionID: id,
		GameType:  "chess",
		Players: [2]game.Player{
			{ID: "ada", DisplayName: "Ada", Side: game.SideFirst},
			{ID: "bob", DisplayName: "Bob", Side: game.SideSecond},
		},
		WinnerID:     winner,
		Reason:       "win",
		StartedAt:    endedAt.Add(-time.Minute),
		EndedAt:      endedAt,
		RatingDeltas: map[string]float64{"ada": 16, "bob": -16},
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Record(ctx, outcome("s-1", "ada", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	second := outcome("s-2", "", now)
	second.Draw = true
	second.Reason = "draw"
	if err := s.Record(ctx, second); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	results, err := s.RecentForPlayer(ctx, "ada", 10)
	if err != nil {
		t.Fatalf("RecentForPlayer() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SessionID != "s-2" || results[0].Result != "draw" {
		t.Errorf("newest result = %+v", results[0])
	}
	if results[1].Result != "win" || results[1].OpponentID != "bob" || results[1].RatingDelta != 16 {
		t.Errorf("older result = %+v", results[1])
	}

	bob, _ := s.RecentForPlayer(ctx, "bob", 1)
	if len(bob) != 1 || bob[0].SessionID != "s-2" {
		t.Errorf("limit not applied: %+v", bob)
	}
}

func TestRecord_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	o := outcome("s-1", "ada", time.Now())

	if err := s.Record(ctx, o); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(ctx, o); err != nil {
		t.Fatalf("second Record() error = %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; expected 1", n, err)
	}
}

func TestRecentForPlayer_Cancelled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	o := outcome("s-1", "", time.Now())
	o.Reason = "cancelled"
	_ = s.Record(ctx, o)

	results, _ := s.RecentForPlayer(ctx, "ada", 0)
	if len(results) != 1 || results[0].Result != "cancelled" {
		t.Errorf("unexpected results: %+v", results)
	}
}
