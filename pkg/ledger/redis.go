package ledger

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
	redisLedgerKeyPrefix = "stream_duels:xp:"
	// redisLedgerHistoryLimit caps the per-actor grant log.
	redisLedgerHistoryLimit = 100
	totalField              = "total"
)

// RedisLedger keeps XP balances in a hash per actor: one field per reason plus a running total.
type RedisLedger struct {
	client redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

func makeBalanceKey(actorID string) string {
	return redisLedgerKeyPrefix + actorID
}

func makeHistoryKey(actorID string) string {
	return redisLedgerKeyPrefix + actorID + ":history"
}

type grantEntry struct {
	Amount   int               `json:"amount"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
	At       time.Time         `json:"at"`
}

// Grant atomically adds amount to the actor's balance.
func (l *RedisLedger) Grant(ctx context.Context, actorID string, amount int, reason string, metadata map[string]string) error {
	if amount <= 0 {
		return nil
	}

	entry, err := json.Marshal(grantEntry{Amount: amount, Reason: reason, Metadata: metadata, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}

	key := makeBalanceKey(actorID)
	historyKey := makeHistoryKey(actorID)

	pipe := l.client.TxPipeline()
	pipe.HIncrBy(ctx, key, totalField, int64(amount))
	pipe.HIncrBy(ctx, key, reason, int64(amount))
	pipe.LPush(ctx, historyKey, entry)
	pipe.LTrim(ctx, historyKey, 0, redisLedgerHistoryLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to grant %d xp to %s: %w", amount, actorID, err)
	}

	logrus.Debugf("granted %d xp to %s for %s", amount, actorID, reason)
	return nil
}

// Balance returns the actor's total XP.
func (l *RedisLedger) Balance(ctx context.Context, actorID string) (int, error) {
	value, err := l.client.HGet(ctx, makeBalanceKey(actorID), totalField).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return strconv.Atoi(value)
}
