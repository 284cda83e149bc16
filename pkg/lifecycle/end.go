package lifecycle

import (
	"context"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/metrics"
	"github.com/AccelByte/extend-stream-duels/pkg/rating"
	"github.com/AccelByte/extend-stream-duels/pkg/session"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/sirupsen/logrus"
)

// EndGame finishes a session. It is idempotent: a session that is unknown or
// already ended returns nil without side effects. An empty winnerID with
// ReasonDraw is a draw; with any other reason the outcome is undecided.
func (c *Controller) EndGame(ctx context.Context, sessionID, winnerID, reason string) error {
	c.mu.Lock()
	sess, ok := c.registry.Get(sessionID)
	if !ok || !sess.MarkEnded() {
		c.mu.Unlock()
		logrus.Debugf("session %s already ended", sessionID)
		return nil
	}
	sess.StopClock()
	c.registry.Remove(sessionID)
	c.mu.Unlock()

	if winnerID != "" {
		if _, seated := sess.Player(winnerID); !seated {
			logrus.Warnf("session %s: winner %s is not seated, treating as undecided", sessionID, winnerID)
			winnerID = ""
		}
	}
	draw := winnerID == "" && reason == ReasonDraw
	endedAt := time.Now().UTC()
	state := sess.Rules.PublicState()

	if c.store != nil {
		rec := &store.SessionRecord{
			SessionID:    sess.ID,
			GameType:     sess.GameType,
			Players:      sess.Players,
			TriggerType:  sess.TriggerType,
			TriggerValue: sess.TriggerValue,
			Status:       store.SessionEnded,
			State:        state,
			WinnerID:     winnerID,
			Reason:       reason,
			StartedAt:    sess.StartedAt,
			EndedAt:      endedAt,
		}
		if err := c.store.EndSession(ctx, rec); err != nil {
			logrus.Errorf("failed to persist end of session %s: %v", sess.ID, err)
		}
	}

	result := rating.Result{RatingSkipped: true}
	if reason != ReasonCancelled {
		result = c.scorer.Apply(ctx, rating.Outcome{
			SessionID: sess.ID,
			GameType:  sess.GameType,
			Players:   sess.Players,
			WinnerID:  winnerID,
			Draw:      draw,
			Reason:    reason,
		}, c.settingsFor(sess.GameType))
	}

	if c.history != nil {
		err := c.history.Record(ctx, &history.Outcome{
			SessionID:    sess.ID,
			GameType:     sess.GameType,
			Players:      sess.Players,
			WinnerID:     winnerID,
			Draw:         draw,
			Reason:       reason,
			StartedAt:    sess.StartedAt,
			EndedAt:      endedAt,
			RatingDeltas: result.Deltas,
		})
		if err != nil {
			logrus.Errorf("failed to record history for session %s: %v", sess.ID, err)
		}
	}

	metrics.GamesEnded.WithLabelValues(sess.GameType, reason).Inc()
	metrics.ActiveSessions.Set(float64(c.registry.Count()))
	logrus.Infof("session %s ended: reason=%s winner=%q", sess.ID, reason, winnerID)

	c.emitter.Emit(broadcast.EventGameEnded, map[string]interface{}{
		"sessionId":  sess.ID,
		"gameType":   sess.GameType,
		"players":    sess.Players,
		"winnerId":   winnerID,
		"draw":       draw,
		"reason":     reason,
		"state":      state,
		"durationMs": endedAt.Sub(sess.StartedAt).Milliseconds(),
		"result":     result,
	})

	c.release(sess)
	return nil
}

// CancelGame ends a session without a winner and without scoring.
func (c *Controller) CancelGame(ctx context.Context, sessionID string) error {
	if _, ok := c.registry.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	return c.EndGame(ctx, sessionID, "", ReasonCancelled)
}

func (c *Controller) settingsFor(gameType string) rating.Settings {
	g, ok := c.games.Get(gameType)
	if !ok {
		return rating.Settings{}
	}
	return rating.Settings{KFactor: g.EloKFactor, Rewards: g.Rewards}
}

// release frees the surface held by sess and signals the queues.
func (c *Controller) release(sess *session.GameSession) {
	c.mu.Lock()
	if c.activeID == sess.ID {
		c.activeID = ""
	}
	c.mu.Unlock()

	if g, ok := c.games.Get(sess.GameType); ok && g.RequiresNegotiation {
		c.structured.CompleteProcessing()
	}
	c.scheduleAdvance()
}
