package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// PlayerLookup is the persistence query used to find a player's active session.
type PlayerLookup interface {
	GetActiveSessionForPlayer(ctx context.Context, playerID string) (string, error)
}

// Registry tracks live sessions. It never looks inside the rules engine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
	lookup   PlayerLookup
}

func NewRegistry(lookup PlayerLookup) *Registry {
	return &Registry{
		sessions: make(map[string]*GameSession),
		lookup:   lookup,
	}
}

// Add registers a session under its id.
func (r *Registry) Add(s *GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already registered", s.ID)
	}
	r.sessions[s.ID] = s
	logrus.Debugf("registered session %s (%s)", s.ID, s.GameType)
	return nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*GameSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters a session and returns it. Only the first call for an id finds it.
func (r *Registry) Remove(id string) (*GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// FindByPlayer returns the player's live session via the persistence index.
// A nil session with a nil error means the player is free.
func (r *Registry) FindByPlayer(ctx context.Context, playerID string) (*GameSession, error) {
	if r.lookup == nil {
		return nil, nil
	}

	id, err := r.lookup.GetActiveSessionForPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session for %s: %w", playerID, err)
	}
	if id == "" {
		return nil, nil
	}

	s, ok := r.Get(id)
	if !ok {
		// Index points at a session this process no longer runs.
		return nil, nil
	}
	return s, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// List returns a snapshot of live sessions.
func (r *Registry) List() []*GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*GameSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every session's clock and discards all sessions.
func (r *Registry) Shutdown() int {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*GameSession)
	r.mu.Unlock()

	for id, s := range sessions {
		s.MarkEnded()
		s.StopClock()
		logrus.Infof("discarded session %s on shutdown", id)
	}
	return len(sessions)
}
