package builtin

import (
	"testing"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

func coinFlipPlayers() [2]game.Player {
	return [2]game.Player{
		{ID: "viewer", DisplayName: "Viewer", Side: game.SideFirst},
		{ID: "host", DisplayName: "Host", Side: game.SideSecond, IsHost: true},
	}
}

func TestCoinFlip_ApplyMove(t *testing.T) {
	rules, err := NewCoinFlip(coinFlipPlayers(), nil)
	if err != nil {
		t.Fatalf("NewCoinFlip() error = %v", err)
	}

	res := rules.ApplyMove("viewer", " Heads ")
	if !res.Success || !res.Terminal {
		t.Fatalf("expected terminal success, got %+v", res)
	}
	if res.WinnerID != "viewer" && res.WinnerID != "host" {
		t.Errorf("unexpected winner %q", res.WinnerID)
	}

	state := rules.PublicState()
	if state["flipped"] != true {
		t.Error("expected coin to be flipped")
	}

	if again := rules.ApplyMove("viewer", "tails"); again.Success {
		t.Error("expected second flip to be rejected")
	}
}

func TestCoinFlip_InvalidInput(t *testing.T) {
	rules, _ := NewCoinFlip(coinFlipPlayers(), nil)

	tests := []struct {
		name  string
		actor string
		input string
	}{
		{"not a participant", "stranger", "heads"},
		{"bad call", "viewer", "edge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := rules.ApplyMove(tt.actor, tt.input)
			if res.Success {
				t.Errorf("expected rejection for %s", tt.name)
			}
			if res.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestCoinFlip_Resign(t *testing.T) {
	rules, _ := NewCoinFlip(coinFlipPlayers(), nil)

	res := rules.Resign("viewer")
	if !res.Terminal || res.WinnerID != "host" {
		t.Errorf("expected host to win on resign, got %+v", res)
	}
}

func TestRegisterGames(t *testing.T) {
	registry := game.NewRegistry()
	if err := RegisterGames(registry); err != nil {
		t.Fatalf("RegisterGames() error = %v", err)
	}
	if !registry.Has(CoinFlipGameType) || !registry.Has(CoinDuelGameType) {
		t.Error("expected coinflip and coinduel to be registered")
	}
	if err := RegisterGames(registry); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
