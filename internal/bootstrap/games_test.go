package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

func writeGames(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestInitGames(t *testing.T) {
	path := writeGames(t, `
games:
  - id: coinflip
    kind: chance
    enabled: true
    triggers: ["!flip"]
  - id: chess
    kind: duel
    enabled: false
    requires_negotiation: true
    triggers: ["!chess"]
`)

	games, rules, err := InitGames(path, nil)
	if err != nil {
		t.Fatalf("InitGames failed: %v", err)
	}
	if _, ok := games.Get("coinflip"); !ok {
		t.Errorf("expected coinflip to be enabled")
	}
	if !rules.Has("coinflip") {
		t.Errorf("expected coinflip rules registered")
	}
}

func TestInitGamesMissingEngine(t *testing.T) {
	path := writeGames(t, `
games:
  - id: chess
    kind: duel
    enabled: true
    requires_negotiation: true
    triggers: ["!chess"]
`)

	_, _, err := InitGames(path, nil)
	if err == nil || !strings.Contains(err.Error(), "no rules engine") {
		t.Fatalf("expected wiring error, got %v", err)
	}

	factory := func(players [2]game.Player, opts game.Options) (game.Rules, error) { return nil, nil }
	if _, _, err := InitGames(path, map[string]game.RulesFactory{"chess": factory}); err != nil {
		t.Fatalf("expected extra factory to satisfy wiring, got %v", err)
	}
}
