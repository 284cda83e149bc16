package handler

import (
	"context"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
	"github.com/AccelByte/extend-stream-duels/pkg/session"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
)

const (
	// DefaultHistoryLimit caps the recent-results listing when the caller gives no limit.
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Orchestrator is the slice of the lifecycle controller the transports drive.
type Orchestrator interface {
	HandleTrigger(ctx context.Context, e trigger.Event) (lifecycle.TriggerResult, error)
	StartGame(ctx context.Context, gameType string, player game.Player, triggerType, triggerValue string, opts game.Options) (*session.GameSession, error)
	AcceptChallenge(ctx context.Context, sessionID string, opponent *game.Player) (*session.GameSession, error)
	RejectChallenge(ctx context.Context, sessionID string) error
	ApplyMove(ctx context.Context, sessionID, actorID, input string) (game.MoveResult, error)
	Resign(ctx context.Context, sessionID, actorID string) error
	CancelGame(ctx context.Context, sessionID string) error
	View(id string) (lifecycle.SessionView, bool)
	State() lifecycle.SurfaceState
	QueuePositions() map[string][]queue.Position
}

var _ Orchestrator = (*lifecycle.Controller)(nil)

// HistoryReader lists a player's recent results.
type HistoryReader interface {
	RecentForPlayer(ctx context.Context, playerID string, limit int) ([]history.PlayerResult, error)
}

// RatingReader reads a player's rating for a game type.
type RatingReader interface {
	GetRating(ctx context.Context, playerID, gameType string) (float64, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
