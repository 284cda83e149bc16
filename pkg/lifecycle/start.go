package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/challenge"
	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/metrics"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
	"github.com/AccelByte/extend-stream-duels/pkg/session"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OptionTimeControl overrides the game type's default time control, e.g. "3+2".
const OptionTimeControl = "timeControl"

type startRequest struct {
	sessionID    string
	gameType     string
	challenger   game.Player
	opponent     *game.Player // nil seats the host
	synthetic    bool         // host seated automatically after a challenge expired
	triggerType  string
	triggerValue string
	opts         game.Options
}

// StartGame seats player against the host and starts immediately.
// It returns queue.ErrSurfaceBusy when another challenge or session holds the surface.
func (c *Controller) StartGame(ctx context.Context, gameType string, player game.Player, triggerType, triggerValue string, opts game.Options) (*session.GameSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.busyLocked() {
		return nil, queue.ErrSurfaceBusy
	}

	return c.startLocked(ctx, startRequest{
		gameType:     gameType,
		challenger:   player,
		triggerType:  triggerType,
		triggerValue: triggerValue,
		opts:         opts,
	})
}

func hostSide(policy string) game.Side {
	switch policy {
	case gameconfig.HostSideFirst:
		return game.SideFirst
	case gameconfig.HostSideRandom:
		if rand.Intn(2) == 0 {
			return game.SideFirst
		}
		return game.SideSecond
	default:
		return game.SideSecond
	}
}

// startLocked builds and registers a session. The caller holds c.mu and owns the surface.
func (c *Controller) startLocked(ctx context.Context, req startRequest) (*session.GameSession, error) {
	g, ok := c.games.Get(req.gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownGameType, req.gameType)
	}
	if req.challenger.ID == "" {
		return nil, fmt.Errorf("%w: challenger id is required", ErrInvalidMove)
	}

	tc, timed, err := g.TimeControl(req.opts.GetString(OptionTimeControl, ""))
	if err != nil {
		return nil, err
	}

	side := hostSide(g.HostSide)
	opponent := game.Player{
		ID:          c.host.ID,
		DisplayName: c.host.DisplayName,
		IsHost:      true,
		Synthetic:   req.synthetic,
	}
	if req.opponent != nil && req.opponent.ID != "" && req.opponent.ID != c.host.ID {
		opponent = game.Player{ID: req.opponent.ID, DisplayName: req.opponent.DisplayName}
	}
	if opponent.ID == req.challenger.ID {
		return nil, fmt.Errorf("%w: %s cannot play against themselves", ErrInvalidMove, opponent.ID)
	}
	opponent.Side = side

	challenger := req.challenger
	challenger.Side = side.Opposite()
	challenger.IsHost, challenger.Synthetic = false, false
	if challenger.DisplayName == "" {
		challenger.DisplayName = challenger.ID
	}

	var players [2]game.Player
	if challenger.Side == game.SideFirst {
		players = [2]game.Player{challenger, opponent}
	} else {
		players = [2]game.Player{opponent, challenger}
	}

	rules, err := c.rules.New(req.gameType, players, req.opts)
	if err != nil {
		return nil, err
	}

	id := req.sessionID
	if id == "" {
		id = uuid.NewString()
	}

	sess := &session.GameSession{
		ID:           id,
		GameType:     req.gameType,
		Kind:         g.Kind,
		Players:      players,
		Rules:        rules,
		StartedAt:    time.Now().UTC(),
		TriggerType:  req.triggerType,
		TriggerValue: req.triggerValue,
	}
	if timed {
		sess.TimeControl = &tc
	}

	if c.store != nil {
		rec := &store.SessionRecord{
			SessionID:    sess.ID,
			GameType:     sess.GameType,
			Players:      sess.Players,
			TriggerType:  sess.TriggerType,
			TriggerValue: sess.TriggerValue,
			Status:       store.SessionActive,
			State:        rules.PublicState(),
			StartedAt:    sess.StartedAt,
		}
		if err := c.store.CreateSession(ctx, rec); err != nil {
			logrus.Errorf("failed to persist session %s: %v", sess.ID, err)
		}
	}

	if err := c.registry.Add(sess); err != nil {
		return nil, err
	}
	c.activeID = sess.ID
	c.pendingID = ""

	if timed {
		c.armClock(sess, tc)
	}

	metrics.GamesStarted.WithLabelValues(sess.GameType).Inc()
	metrics.ActiveSessions.Set(float64(c.registry.Count()))
	logrus.Infof("session %s started: %s vs %s (%s)", sess.ID, players[0].ID, players[1].ID, sess.GameType)

	payload := map[string]interface{}{
		"sessionId":   sess.ID,
		"gameType":    sess.GameType,
		"kind":        sess.Kind,
		"players":     sess.Players,
		"state":       rules.PublicState(),
		"triggerType": sess.TriggerType,
		"startedAt":   sess.StartedAt,
	}
	if sess.TimeControl != nil {
		payload["timeControl"] = sess.TimeControl.String()
		payload["clock"] = sess.Clock().Snapshot()
	}
	c.emitter.Emit(broadcast.EventGameStarted, payload)

	return sess, nil
}

func (c *Controller) armClock(sess *session.GameSession, tc clock.TimeControl) {
	id := sess.ID
	sess.AttachClock(clock.Start(clock.Config{
		TimeControl: tc,
		Guard:       sess.Active,
		OnUpdate: func(snap clock.Snapshot) {
			c.emitter.Emit(broadcast.EventTimerUpdate, map[string]interface{}{
				"sessionId":   id,
				"remainingMs": snap.RemainingMs,
				"active":      snap.Active,
				"mode":        snap.Mode,
			})
		},
		OnFlag: func(loser game.Side) {
			winner := sess.PlayerOnSide(loser.Opposite())
			if err := c.EndGame(context.Background(), id, winner.ID, ReasonTimeout); err != nil {
				logrus.Errorf("failed to end session %s on timeout: %v", id, err)
			}
		},
	}))
}

// AcceptChallenge resolves a pending challenge and starts the game.
// A nil opponent, or the host's id, seats the host.
func (c *Controller) AcceptChallenge(ctx context.Context, sessionID string, opponent *game.Player) (*session.GameSession, error) {
	c.mu.Lock()

	ch, err := c.negotiator.Accept(ctx, sessionID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	metrics.Challenges.WithLabelValues(ch.GameType, "accepted").Inc()

	sess, err := c.startFromChallengeLocked(ctx, ch, opponent, false)
	c.mu.Unlock()

	if err != nil {
		c.structured.CompleteProcessing()
		return nil, err
	}
	return sess, nil
}

// RejectChallenge drops a pending challenge and frees the surface.
func (c *Controller) RejectChallenge(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	ch, err := c.negotiator.Reject(ctx, sessionID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.pendingID == sessionID {
		c.pendingID = ""
	}
	c.mu.Unlock()

	metrics.Challenges.WithLabelValues(ch.GameType, "rejected").Inc()
	c.structured.CompleteProcessing()
	return nil
}

// onChallengeTimeout seats the host automatically once nobody accepted in time.
func (c *Controller) onChallengeTimeout(ch challenge.Challenge) {
	metrics.Challenges.WithLabelValues(ch.GameType, "timed_out").Inc()

	c.mu.Lock()
	if c.closed || c.pendingID != ch.SessionID {
		c.mu.Unlock()
		return
	}
	_, err := c.startFromChallengeLocked(context.Background(), ch, nil, true)
	c.mu.Unlock()

	if err != nil {
		logrus.Errorf("failed to start timed-out challenge %s: %v", ch.SessionID, err)
		c.structured.CompleteProcessing()
	}
}

func (c *Controller) startFromChallengeLocked(ctx context.Context, ch challenge.Challenge, opponent *game.Player, synthetic bool) (*session.GameSession, error) {
	sess, err := c.startLocked(ctx, startRequest{
		sessionID:    ch.SessionID,
		gameType:     ch.GameType,
		challenger:   game.Player{ID: ch.ChallengerID, DisplayName: ch.ChallengerName},
		opponent:     opponent,
		synthetic:    synthetic,
		triggerType:  "challenge",
		triggerValue: ch.TriggerLabel,
	})
	if err != nil && c.pendingID == ch.SessionID {
		c.pendingID = ""
	}
	return sess, err
}
