package lifecycle

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/session"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/sirupsen/logrus"
)

// ApplyMove forwards input to the session's rules engine and hands the clock to the opponent.
// A rejected move returns ErrInvalidMove along with the engine's result.
func (c *Controller) ApplyMove(ctx context.Context, sessionID, actorID, input string) (game.MoveResult, error) {
	c.mu.Lock()
	sess, ok := c.registry.Get(sessionID)
	if !ok || !sess.Active() {
		c.mu.Unlock()
		return game.MoveResult{}, ErrSessionNotFound
	}
	mover, seated := sess.Player(actorID)
	if !seated {
		c.mu.Unlock()
		c.emitRejected(sess, actorID, game.ErrNotParticipant.Error())
		return game.MoveResult{Error: game.ErrNotParticipant.Error()}, fmt.Errorf("%w: %v", ErrInvalidMove, game.ErrNotParticipant)
	}

	result := sess.Rules.ApplyMove(actorID, input)
	if !result.Success {
		c.mu.Unlock()
		c.emitRejected(sess, actorID, result.Error)
		return result, fmt.Errorf("%w: %s", ErrInvalidMove, result.Error)
	}

	flagged := false
	if clk := sess.Clock(); clk != nil && !result.Terminal {
		flagged = clk.Switch(mover.Side)
	}
	state := sess.Rules.PublicState()
	c.mu.Unlock()

	payload := map[string]interface{}{
		"sessionId": sess.ID,
		"actorId":   actorID,
		"input":     input,
		"state":     state,
		"terminal":  result.Terminal,
	}
	if clk := sess.Clock(); clk != nil {
		payload["clock"] = clk.Snapshot()
	}
	c.emitter.Emit(broadcast.EventMoveApplied, payload)

	if c.store != nil {
		err := c.store.UpdateSession(ctx, &store.SessionRecord{
			SessionID:    sess.ID,
			GameType:     sess.GameType,
			Players:      sess.Players,
			TriggerType:  sess.TriggerType,
			TriggerValue: sess.TriggerValue,
			Status:       store.SessionActive,
			State:        state,
			StartedAt:    sess.StartedAt,
		})
		if err != nil {
			logrus.Warnf("failed to persist move in session %s: %v", sess.ID, err)
		}
	}

	switch {
	case flagged:
		winner := sess.PlayerOnSide(mover.Side.Opposite())
		return result, c.EndGame(ctx, sess.ID, winner.ID, ReasonTimeout)
	case result.Terminal:
		return result, c.EndGame(ctx, sess.ID, result.WinnerID, terminalReason(result))
	}
	return result, nil
}

// Resign concedes the session for actorID.
func (c *Controller) Resign(ctx context.Context, sessionID, actorID string) error {
	c.mu.Lock()
	sess, ok := c.registry.Get(sessionID)
	if !ok || !sess.Active() {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	loser, seated := sess.Player(actorID)
	if !seated {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidMove, game.ErrNotParticipant)
	}
	result := sess.Rules.Resign(actorID)
	c.mu.Unlock()

	winnerID := result.WinnerID
	if winnerID == "" {
		winnerID = sess.PlayerOnSide(loser.Side.Opposite()).ID
	}
	return c.EndGame(ctx, sess.ID, winnerID, ReasonResign)
}

func terminalReason(r game.MoveResult) string {
	if r.Draw || r.WinnerID == "" {
		return ReasonDraw
	}
	return ReasonWin
}

func (c *Controller) emitRejected(sess *session.GameSession, actorID, reason string) {
	c.emitter.Emit(broadcast.EventMoveRejected, map[string]interface{}{
		"sessionId": sess.ID,
		"actorId":   actorID,
		"error":     reason,
	})
}
