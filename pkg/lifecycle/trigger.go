package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/metrics"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
	"github.com/sirupsen/logrus"
)

// TriggerResult tells the caller what happened to an ingested trigger.
type TriggerResult struct {
	GameType string `json:"gameType,omitempty"`
	Dropped  bool   `json:"dropped"`
	Queued   bool   `json:"queued"`
	Position int    `json:"position,omitempty"`
}

func (c *Controller) resolve(e trigger.Event) (gameconfig.GameConfig, bool) {
	if e.GameType != "" {
		return c.games.Get(e.GameType)
	}
	return c.games.Match(e.TriggerLabel)
}

// HandleTrigger runs a chat command or gift through dedup and into the right queue.
// Duplicates and unfinished gift streaks are dropped without error.
func (c *Controller) HandleTrigger(ctx context.Context, e trigger.Event) (TriggerResult, error) {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	metrics.TriggersReceived.WithLabelValues(e.TriggerType()).Inc()

	g, matched := c.resolve(e)
	if !c.dedup.Ingest(e, matched) {
		reason := "duplicate"
		switch {
		case e.IsStreakFinal != nil && !*e.IsStreakFinal:
			reason = "streak_in_progress"
		case !matched:
			reason = "unmatched"
		}
		metrics.TriggersDropped.WithLabelValues(reason).Inc()
		if reason == "unmatched" {
			return TriggerResult{Dropped: true}, fmt.Errorf("%w: %q", ErrUnknownTrigger, e.TriggerLabel)
		}
		return TriggerResult{GameType: g.ID, Dropped: true}, nil
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return TriggerResult{}, ErrClosed
	}

	if sess, err := c.registry.FindByPlayer(ctx, e.ActorID); err != nil {
		logrus.Warnf("player lookup for %s failed: %v", e.ActorID, err)
	} else if sess != nil {
		metrics.TriggersDropped.WithLabelValues("player_busy").Inc()
		return TriggerResult{GameType: g.ID, Dropped: true}, fmt.Errorf("%w: %s in %s", ErrPlayerBusy, e.ActorID, sess.ID)
	}

	entry := queue.Entry{
		GameType:     g.ID,
		ViewerID:     e.ActorID,
		ViewerName:   e.DisplayName(),
		TriggerType:  e.TriggerType(),
		TriggerValue: e.TriggerLabel,
		EnqueuedAt:   e.ReceivedAt,
	}

	q := c.queueFor(g)
	position, err := q.Submit(entry)
	if err != nil {
		return TriggerResult{GameType: g.ID}, err
	}

	result := TriggerResult{GameType: g.ID, Queued: position > 0, Position: position}
	if position > 0 {
		metrics.QueueDepth.WithLabelValues(queueName(g)).Set(float64(q.Len()))
		c.emitter.Emit(broadcast.EventQueuePosition, queue.Position{Entry: entry, Position: position})
	}
	return result, nil
}

func queueName(g gameconfig.GameConfig) string {
	if g.RequiresNegotiation {
		return "structured"
	}
	return "legacy"
}
