package builtin

import (
	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

// CoinDuelGameType is the coin flip played as a negotiated duel, useful for exercising
// the challenge flow without a board engine.
const CoinDuelGameType = "coinduel"

// RegisterGames registers the built-in rules engines.
// Duel engines (boards, grids) live outside this module and are registered by the embedding binary.
func RegisterGames(registry *game.Registry) error {
	if err := registry.Register(CoinFlipGameType, NewCoinFlip); err != nil {
		return err
	}
	return registry.Register(CoinDuelGameType, NewCoinFlip)
}
