// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

// DefaultRating is the rating of a player with no history in a game type.
const DefaultRating = 1000.0

// SessionStatus is the persisted lifecycle state of a game session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// SessionRecord is the persisted view of a game session.
type SessionRecord struct {
	SessionID    string                 `json:"sessionId"`
	GameType     string                 `json:"gameType"`
	Players      [2]game.Player         `json:"players"`
	TriggerType  string                 `json:"triggerType"`
	TriggerValue string                 `json:"triggerValue"`
	Status       SessionStatus          `json:"status"`
	State        map[string]interface{} `json:"state,omitempty"`
	WinnerID     string                 `json:"winnerId,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	StartedAt    time.Time              `json:"startedAt"`
	EndedAt      time.Time              `json:"endedAt,omitempty"`
}

// ChallengeStatus is the terminal or pending state of a challenge.
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeAccepted ChallengeStatus = "accepted"
	ChallengeRejected ChallengeStatus = "rejected"
	ChallengeTimedOut ChallengeStatus = "timed_out"
)

// ChallengeRecord is the persisted view of a challenge.
type ChallengeRecord struct {
	SessionID      string          `json:"sessionId"`
	GameType       string          `json:"gameType"`
	ChallengerID   string          `json:"challengerId"`
	ChallengerName string          `json:"challengerName"`
	TriggerLabel   string          `json:"triggerLabel"`
	Status         ChallengeStatus `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// StreakRecord tracks consecutive wins per player and game type.
type StreakRecord struct {
	PlayerID         string `json:"playerId"`
	GameType         string `json:"gameType"`
	CurrentWinStreak int    `json:"currentWinStreak"`
	BestWinStreak    int    `json:"bestWinStreak"`
}
