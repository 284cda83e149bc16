// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build integration
// +build integration

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Manual smoke test for the Redis store and ledger.
// Run this with: go run -tags integration test_redis_integration.go
// Requires: Redis running on localhost:6379

func main() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.Infof("Starting Redis integration test...")

	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to reach Redis: %v", err)
	}

	prefix := fmt.Sprintf("stream_duels_it_%d:", time.Now().Unix())
	st := store.NewRedisStore(client, store.RedisStoreConfig{KeyPrefix: prefix})
	xp := ledger.NewRedisLedger(client)
	viewer := fmt.Sprintf("it-viewer-%d", time.Now().Unix())

	logrus.Infof("=== Test 1: session index ===")
	rec := &store.SessionRecord{
		SessionID: "it-session",
		GameType:  "coinflip",
		Players: [2]game.Player{
			{ID: viewer, Side: game.SideFirst},
			{ID: "host", Side: game.SideSecond, IsHost: true, Synthetic: true},
		},
		Status:    store.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	if err := st.CreateSession(ctx, rec); err != nil {
		logrus.Fatalf("CreateSession failed: %v", err)
	}
	id, err := st.GetActiveSessionForPlayer(ctx, viewer)
	if err != nil || id != rec.SessionID {
		logrus.Fatalf("expected %s indexed, got %q (%v)", rec.SessionID, id, err)
	}
	if id, _ := st.GetActiveSessionForPlayer(ctx, "host"); id != "" {
		logrus.Fatalf("synthetic host must not be indexed, got %s", id)
	}
	logrus.Infof("✓ session indexed for %s only", viewer)

	logrus.Infof("=== Test 2: end session ===")
	rec.Status = store.SessionEnded
	rec.EndedAt = time.Now().UTC()
	if err := st.EndSession(ctx, rec); err != nil {
		logrus.Fatalf("EndSession failed: %v", err)
	}
	if id, _ := st.GetActiveSessionForPlayer(ctx, viewer); id != "" {
		logrus.Fatalf("expected index cleared, got %s", id)
	}
	logrus.Infof("✓ index cleared")

	logrus.Infof("=== Test 3: rating and streak ===")
	if err := st.UpdateRating(ctx, viewer, "coinflip", 1016); err != nil {
		logrus.Fatalf("UpdateRating failed: %v", err)
	}
	rating, _ := st.GetRating(ctx, viewer, "coinflip")
	if err := st.UpdateStreak(ctx, &store.StreakRecord{PlayerID: viewer, GameType: "coinflip", CurrentWinStreak: 2, BestWinStreak: 3}); err != nil {
		logrus.Fatalf("UpdateStreak failed: %v", err)
	}
	streak, _ := st.GetStreak(ctx, viewer, "coinflip")
	logrus.Infof("✓ rating=%.0f streak=%d/%d", rating, streak.CurrentWinStreak, streak.BestWinStreak)

	logrus.Infof("=== Test 4: ledger ===")
	if err := xp.Grant(ctx, viewer, 25, "win", map[string]string{"sessionId": rec.SessionID}); err != nil {
		logrus.Fatalf("Grant failed: %v", err)
	}
	balance, _ := xp.Balance(ctx, viewer)
	logrus.Infof("✓ balance=%d", balance)

	logrus.Infof("All Redis integration checks passed")
}
