package builtin

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
)

const (
	// CoinFlipGameType is the identifier for the coin flip chance game.
	CoinFlipGameType = "coinflip"
)

// CoinFlip is a one-move chance game: the viewer calls a side, the coin decides.
// The seat that is not the caller wins on a wrong call.
type CoinFlip struct {
	mu      sync.Mutex
	players [2]game.Player
	rng     *rand.Rand
	call    string
	landed  string
	done    bool
}

// NewCoinFlip creates a coin flip rules engine.
func NewCoinFlip(players [2]game.Player, opts game.Options) (game.Rules, error) {
	return &CoinFlip{
		players: players,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (c *CoinFlip) seat(actorID string) (game.Player, game.Player, bool) {
	if c.players[0].ID == actorID {
		return c.players[0], c.players[1], true
	}
	if c.players[1].ID == actorID {
		return c.players[1], c.players[0], true
	}
	return game.Player{}, game.Player{}, false
}

// ApplyMove accepts "heads" or "tails" from either seated player.
func (c *CoinFlip) ApplyMove(actorID, input string) game.MoveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return game.MoveResult{Error: "coin already flipped"}
	}
	caller, other, ok := c.seat(actorID)
	if !ok {
		return game.MoveResult{Error: game.ErrNotParticipant.Error()}
	}

	call := strings.ToLower(strings.TrimSpace(input))
	if call != "heads" && call != "tails" {
		return game.MoveResult{Error: "call heads or tails"}
	}

	c.call = call
	c.landed = "heads"
	if c.rng.Intn(2) == 1 {
		c.landed = "tails"
	}
	c.done = true

	winner := other.ID
	if c.landed == call {
		winner = caller.ID
	}
	return game.MoveResult{Success: true, Terminal: true, WinnerID: winner}
}

// PublicState exposes the call and result for overlays.
func (c *CoinFlip) PublicState() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return map[string]interface{}{
		"call":    c.call,
		"landed":  c.landed,
		"flipped": c.done,
	}
}

// Resign forfeits to the other seat.
func (c *CoinFlip) Resign(actorID string) game.MoveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, other, ok := c.seat(actorID)
	if !ok {
		return game.MoveResult{Error: game.ErrNotParticipant.Error()}
	}
	c.done = true
	return game.MoveResult{Success: true, Terminal: true, WinnerID: other.ID}
}
