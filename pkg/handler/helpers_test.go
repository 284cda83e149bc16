package handler

import (
	"context"
	"testing"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/game/builtin"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type testEnv struct {
	controller *lifecycle.Controller
	store      *store.RedisStore
	history    *history.Store
}

// setupTestController wires a controller against miniredis and a temp SQLite history.
func setupTestController(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewRedisStore(client, store.RedisStoreConfig{})

	hist, err := history.New(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	rules := game.NewRegistry()
	if err := builtin.RegisterGames(rules); err != nil {
		t.Fatalf("failed to register games: %v", err)
	}

	games := &gameconfig.Config{Games: []gameconfig.GameConfig{
		{
			ID:       builtin.CoinFlipGameType,
			Kind:     game.KindChance,
			Enabled:  true,
			Triggers: []string{"!flip"},
		},
		{
			ID:                      builtin.CoinDuelGameType,
			Kind:                    game.KindDuel,
			Enabled:                 true,
			RequiresNegotiation:     true,
			Triggers:                []string{"!duel"},
			ChallengeTimeoutSeconds: 30,
		},
	}}

	controller := lifecycle.New(lifecycle.Config{
		Games:      games,
		Rules:      rules,
		Store:      st,
		History:    hist,
		Ledger:     ledger.NewRedisLedger(client),
		Host:       lifecycle.Host{ID: "streamer"},
		GraceDelay: 10 * time.Millisecond,
	})
	t.Cleanup(func() { controller.Shutdown(context.Background()) })

	return &testEnv{controller: controller, store: st, history: hist}
}
