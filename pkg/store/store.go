package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator of the orchestrator.
// Every call may fail; callers degrade rather than abort.
type Store interface {
	GetActiveSessionForPlayer(ctx context.Context, playerID string) (string, error)
	CreateSession(ctx context.Context, rec *SessionRecord) error
	UpdateSession(ctx context.Context, rec *SessionRecord) error
	EndSession(ctx context.Context, rec *SessionRecord) error

	GetRating(ctx context.Context, playerID, gameType string) (float64, error)
	UpdateRating(ctx context.Context, playerID, gameType string, rating float64) error
	GetStreak(ctx context.Context, playerID, gameType string) (*StreakRecord, error)
	UpdateStreak(ctx context.Context, rec *StreakRecord) error

	SaveChallenge(ctx context.Context, rec *ChallengeRecord) error
	UpdateChallengeStatus(ctx context.Context, sessionID string, status ChallengeStatus) error
}
