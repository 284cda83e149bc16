package queue

import (
	"errors"
	"time"
)

// ErrSurfaceBusy is returned by a dispatcher that lost the race for the game surface.
// The entry goes back to the head of its queue.
var ErrSurfaceBusy = errors.New("game surface is busy")

// Entry is one viewer waiting for the game surface.
type Entry struct {
	GameType     string    `json:"gameType"`
	ViewerID     string    `json:"viewerId"`
	ViewerName   string    `json:"viewerName"`
	TriggerType  string    `json:"triggerType"`
	TriggerValue string    `json:"triggerValue"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}

// Position is a queue announcement for one waiting viewer.
type Position struct {
	Entry
	Position int `json:"position"`
}

// Surface reports whether a session or challenge currently holds the game surface.
type Surface interface {
	Busy() bool
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func() bool

func (f SurfaceFunc) Busy() bool { return f() }

// Dispatcher hands an entry to the orchestrator: negotiate a challenge or start a game.
type Dispatcher func(e Entry) error

// Announcer receives the waiting line after every successful dequeue.
type Announcer func(waiting []Position)

// Manager is the queue abstraction the orchestrator selects per game type.
type Manager interface {
	// Submit queues or immediately dispatches an entry. Position 0 means it was dispatched.
	Submit(e Entry) (int, error)
	// Release tells the queue its session or challenge is over and advances it.
	Release()
	// Advance dispatches the head if the surface is free.
	Advance() bool
	Len() int
	Positions() []Position
}

func positions(entries []Entry) []Position {
	out := make([]Position, len(entries))
	for i, e := range entries {
		out[i] = Position{Entry: e, Position: i + 1}
	}
	return out
}
