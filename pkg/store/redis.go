package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// sessionTTL bounds how long finished sessions linger for lookups.
	sessionTTL   = 24 * time.Hour
	challengeTTL = 24 * time.Hour
	// profileTTL is the retention of ratings and streaks (90 days).
	profileTTL = 90 * 24 * time.Hour

	keyPrefix = "stream_duels:"
)

// RedisStore implements Store using Redis.
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisStoreConfig
}

type RedisStoreConfig struct {
	// KeyPrefix namespaces every key; defaults to "stream_duels:".
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client redis.UniversalClient, cfg RedisStoreConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = keyPrefix
	}
	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%ssession:%s", r.cfg.KeyPrefix, sessionID)
}

func (r *RedisStore) playerSessionKey(playerID string) string {
	return fmt.Sprintf("%splayer_session:%s", r.cfg.KeyPrefix, playerID)
}

func (r *RedisStore) ratingKey(playerID string) string {
	return fmt.Sprintf("%srating:%s", r.cfg.KeyPrefix, playerID)
}

func (r *RedisStore) streakKey(playerID, gameType string) string {
	return fmt.Sprintf("%sstreak:%s:%s", r.cfg.KeyPrefix, gameType, playerID)
}

func (r *RedisStore) challengeKey(sessionID string) string {
	return fmt.Sprintf("%schallenge:%s", r.cfg.KeyPrefix, sessionID)
}

// GetActiveSessionForPlayer returns the id of the player's active session, or "" if none.
func (r *RedisStore) GetActiveSessionForPlayer(ctx context.Context, playerID string) (string, error) {
	sessionID, err := r.client.Get(ctx, r.playerSessionKey(playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get active session for player %s: %w", playerID, err)
	}
	return sessionID, nil
}

// CreateSession stores the session and indexes its real participants.
func (r *RedisStore) CreateSession(ctx context.Context, rec *SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(rec.SessionID), data, sessionTTL)
	for _, p := range rec.Players {
		if p.ID == "" || p.Synthetic {
			continue
		}
		pipe.Set(ctx, r.playerSessionKey(p.ID), rec.SessionID, sessionTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session %s: %w", rec.SessionID, err)
	}

	logrus.Debugf("created session %s", rec.SessionID)
	return nil
}

// UpdateSession overwrites the stored session.
func (r *RedisStore) UpdateSession(ctx context.Context, rec *SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.sessionKey(rec.SessionID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to update session %s: %w", rec.SessionID, err)
	}
	return nil
}

// EndSession stores the final state and drops the player index entries that still point at it.
func (r *RedisStore) EndSession(ctx context.Context, rec *SessionRecord) error {
	rec.Status = SessionEnded
	if err := r.UpdateSession(ctx, rec); err != nil {
		return err
	}

	for _, p := range rec.Players {
		if p.ID == "" || p.Synthetic {
			continue
		}
		key := r.playerSessionKey(p.ID)
		current, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read session index for %s: %w", p.ID, err)
		}
		if current == rec.SessionID {
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("failed to clear session index for %s: %w", p.ID, err)
			}
		}
	}

	logrus.Debugf("ended session %s", rec.SessionID)
	return nil
}

// GetSession loads a stored session.
func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var rec SessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &rec, nil
}

// GetRating returns the player's rating, or DefaultRating when none is stored.
// Ratings live in one hash per player keyed by game type.
func (r *RedisStore) GetRating(ctx context.Context, playerID, gameType string) (float64, error) {
	value, err := r.client.HGet(ctx, r.ratingKey(playerID), gameType).Result()
	if err == redis.Nil {
		return DefaultRating, nil
	}
	if err != nil {
		return DefaultRating, fmt.Errorf("failed to get rating: %w", err)
	}

	rating, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultRating, fmt.Errorf("failed to parse rating %q: %w", value, err)
	}
	return rating, nil
}

// UpdateRating stores the player's new rating.
func (r *RedisStore) UpdateRating(ctx context.Context, playerID, gameType string, rating float64) error {
	key := r.ratingKey(playerID)
	if err := r.client.HSet(ctx, key, gameType, strconv.FormatFloat(rating, 'f', 2, 64)).Err(); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	r.client.Expire(ctx, key, profileTTL)
	return nil
}

// GetStreak returns the streak record, zeroed when none is stored.
func (r *RedisStore) GetStreak(ctx context.Context, playerID, gameType string) (*StreakRecord, error) {
	data, err := r.client.HGetAll(ctx, r.streakKey(playerID, gameType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	rec := &StreakRecord{PlayerID: playerID, GameType: gameType}
	if v, ok := data["current"]; ok {
		rec.CurrentWinStreak, _ = strconv.Atoi(v)
	}
	if v, ok := data["best"]; ok {
		rec.BestWinStreak, _ = strconv.Atoi(v)
	}
	return rec, nil
}

// UpdateStreak stores the streak record.
func (r *RedisStore) UpdateStreak(ctx context.Context, rec *StreakRecord) error {
	key := r.streakKey(rec.PlayerID, rec.GameType)
	if err := r.client.HSet(ctx, key, "current", rec.CurrentWinStreak, "best", rec.BestWinStreak).Err(); err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	r.client.Expire(ctx, key, profileTTL)
	return nil
}

// SaveChallenge stores a challenge record.
func (r *RedisStore) SaveChallenge(ctx context.Context, rec *ChallengeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := r.client.Set(ctx, r.challengeKey(rec.SessionID), data, challengeTTL).Err(); err != nil {
		return fmt.Errorf("failed to save challenge %s: %w", rec.SessionID, err)
	}
	return nil
}

// GetChallenge loads a challenge record.
func (r *RedisStore) GetChallenge(ctx context.Context, sessionID string) (*ChallengeRecord, error) {
	data, err := r.client.Get(ctx, r.challengeKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("challenge %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %s: %w", sessionID, err)
	}

	var rec ChallengeRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge %s: %w", sessionID, err)
	}
	return &rec, nil
}

// UpdateChallengeStatus marks a stored challenge.
func (r *RedisStore) UpdateChallengeStatus(ctx context.Context, sessionID string, status ChallengeStatus) error {
	rec, err := r.GetChallenge(ctx, sessionID)
	if err != nil {
		return err
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	return r.SaveChallenge(ctx, rec)
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
