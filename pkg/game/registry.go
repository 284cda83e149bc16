package game

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps game types to the factories that build their rules engines.
// It provides thread-safe registration and lookup.
type Registry struct {
	factories map[string]RulesFactory
	mu        sync.RWMutex
}

// NewRegistry creates a new empty rules registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]RulesFactory),
	}
}

// Register adds a rules factory for a game type.
// Returns an error if the game type is already registered.
func (r *Registry) Register(gameType string, factory RulesFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[gameType]; exists {
		return fmt.Errorf("game type %s already registered", gameType)
	}

	r.factories[gameType] = factory
	logrus.Debugf("registered rules for game type: %s", gameType)
	return nil
}

// Has reports whether a factory exists for the game type.
func (r *Registry) Has(gameType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[gameType]
	return ok
}

// New instantiates a rules engine for the game type.
func (r *Registry) New(gameType string, players [2]Player, opts Options) (Rules, error) {
	r.mu.RLock()
	factory, ok := r.factories[gameType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGameType, gameType)
	}

	return factory(players, opts)
}

// Count returns the number of registered game types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.factories)
}
