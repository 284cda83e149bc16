package rating

import (
	"context"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the engine reads and writes.
type Store interface {
	GetRating(ctx context.Context, playerID, gameType string) (float64, error)
	UpdateRating(ctx context.Context, playerID, gameType string, rating float64) error
	GetStreak(ctx context.Context, playerID, gameType string) (*store.StreakRecord, error)
	UpdateStreak(ctx context.Context, rec *store.StreakRecord) error
}

// Outcome is a finished, scorable session.
type Outcome struct {
	SessionID string
	GameType  string
	Players   [2]game.Player
	WinnerID  string
	Draw      bool
	Reason    string
}

// Settings are the per-game-type knobs.
type Settings struct {
	KFactor float64
	Rewards gameconfig.Rewards
}

// Result summarizes what the engine applied.
type Result struct {
	RatingSkipped bool                          `json:"ratingSkipped"`
	Deltas        map[string]float64            `json:"ratingDeltas,omitempty"`
	Ratings       map[string]float64            `json:"ratings,omitempty"`
	XP            map[string]int                `json:"xp,omitempty"`
	Streaks       map[string]store.StreakRecord `json:"streaks,omitempty"`
}

// Engine computes ratings, XP and streaks at game end.
// Persistence failures are logged and replaced with defaults; Apply never fails.
type Engine struct {
	store   Store
	ledger  ledger.Ledger
	emitter broadcast.Emitter
}

func NewEngine(st Store, l ledger.Ledger, emitter broadcast.Emitter) *Engine {
	if emitter == nil {
		emitter = broadcast.Nop{}
	}
	return &Engine{store: st, ledger: l, emitter: emitter}
}

func (o Outcome) decisive() bool { return o.WinnerID != "" && !o.Draw }

// score returns 1, 0.5 or 0 for playerID.
func (o Outcome) score(playerID string) float64 {
	switch {
	case o.Draw:
		return 0.5
	case o.WinnerID == playerID:
		return 1
	default:
		return 0
	}
}

// Apply scores a finished session.
func (e *Engine) Apply(ctx context.Context, o Outcome, s Settings) Result {
	if s.KFactor <= 0 {
		s.KFactor = DefaultKFactor
	}
	if s.Rewards == (gameconfig.Rewards{}) {
		s.Rewards = gameconfig.DefaultRewards()
	}

	result := Result{
		XP:      make(map[string]int),
		Streaks: make(map[string]store.StreakRecord),
	}

	// A game against the automatically seated host has no rating, reward or streak effects.
	if o.Players[0].Synthetic || o.Players[1].Synthetic {
		logrus.Infof("session %s played against a synthetic opponent, skipping rating and rewards", o.SessionID)
		result.RatingSkipped = true
		return result
	}

	scored := o.decisive() || o.Draw
	if scored {
		result.Deltas, result.Ratings = e.applyRatings(ctx, o, s.KFactor)
	} else {
		result.RatingSkipped = true
	}

	for _, p := range o.Players {
		if p.ID == "" {
			continue
		}
		result.XP[p.ID] = e.grantXP(ctx, o, p, s.Rewards)
		if scored {
			result.Streaks[p.ID] = e.applyStreak(ctx, o, p)
		}
	}

	return result
}

func (e *Engine) readRating(ctx context.Context, playerID, gameType string) float64 {
	if e.store == nil {
		return store.DefaultRating
	}
	r, err := e.store.GetRating(ctx, playerID, gameType)
	if err != nil {
		logrus.Errorf("failed to read rating for %s in %s, using default: %v", playerID, gameType, err)
		return store.DefaultRating
	}
	return r
}

// applyRatings updates both players from the same pre-game ratings.
func (e *Engine) applyRatings(ctx context.Context, o Outcome, k float64) (map[string]float64, map[string]float64) {
	a, b := o.Players[0], o.Players[1]
	ra := e.readRating(ctx, a.ID, o.GameType)
	rb := e.readRating(ctx, b.ID, o.GameType)

	deltas := map[string]float64{
		a.ID: Delta(ra, rb, o.score(a.ID), k),
		b.ID: Delta(rb, ra, o.score(b.ID), k),
	}
	ratings := map[string]float64{
		a.ID: ra + deltas[a.ID],
		b.ID: rb + deltas[b.ID],
	}

	if e.store != nil {
		for id, r := range ratings {
			if err := e.store.UpdateRating(ctx, id, o.GameType, r); err != nil {
				logrus.Errorf("failed to update rating for %s in %s: %v", id, o.GameType, err)
			}
		}
	}

	logrus.Infof("session %s ratings: %s %+.1f, %s %+.1f", o.SessionID, a.ID, deltas[a.ID], b.ID, deltas[b.ID])
	return deltas, ratings
}

func (e *Engine) grantXP(ctx context.Context, o Outcome, p game.Player, rewards gameconfig.Rewards) int {
	var bonus int
	var reason string
	switch {
	case o.Draw:
		bonus, reason = rewards.Draw, "draw"
	case o.WinnerID == p.ID:
		bonus, reason = rewards.Win, "win"
	case o.WinnerID != "":
		bonus, reason = rewards.Loss, "loss"
	}

	total := rewards.Participation + bonus
	if e.ledger == nil {
		return total
	}

	metadata := map[string]string{"sessionId": o.SessionID, "gameType": o.GameType}
	if err := e.ledger.Grant(ctx, p.ID, rewards.Participation, "participation", metadata); err != nil {
		logrus.Errorf("failed to grant participation xp to %s: %v", p.ID, err)
	}
	if reason != "" {
		if err := e.ledger.Grant(ctx, p.ID, bonus, reason, metadata); err != nil {
			logrus.Errorf("failed to grant %s xp to %s: %v", reason, p.ID, err)
		}
	}
	return total
}

func (e *Engine) applyStreak(ctx context.Context, o Outcome, p game.Player) store.StreakRecord {
	rec := &store.StreakRecord{PlayerID: p.ID, GameType: o.GameType}
	if e.store != nil {
		stored, err := e.store.GetStreak(ctx, p.ID, o.GameType)
		if err != nil {
			logrus.Errorf("failed to read streak for %s in %s, starting from zero: %v", p.ID, o.GameType, err)
		} else if stored != nil {
			rec = stored
		}
	}

	previousBest := rec.BestWinStreak
	switch {
	case o.Draw:
	case o.WinnerID == p.ID:
		rec.CurrentWinStreak++
	default:
		rec.CurrentWinStreak = 0
	}
	if rec.CurrentWinStreak > rec.BestWinStreak {
		rec.BestWinStreak = rec.CurrentWinStreak
	}

	if e.store != nil {
		if err := e.store.UpdateStreak(ctx, rec); err != nil {
			logrus.Errorf("failed to update streak for %s in %s: %v", p.ID, o.GameType, err)
		}
	}

	if rec.CurrentWinStreak > previousBest && rec.CurrentWinStreak > 1 {
		e.emitter.Emit(broadcast.EventNewStreakRecord, map[string]interface{}{
			"playerId":     p.ID,
			"playerName":   p.DisplayName,
			"gameType":     o.GameType,
			"streak":       rec.CurrentWinStreak,
			"previousBest": previousBest,
		})
	}

	return *rec
}
