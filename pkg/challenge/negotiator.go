package challenge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrChallengeNotFound is returned when a challenge was already resolved or never existed.
var ErrChallengeNotFound = errors.New("challenge not found")

// Challenge is a pending invitation waiting for an opponent.
type Challenge struct {
	SessionID      string    `json:"sessionId"`
	GameType       string    `json:"gameType"`
	ChallengerID   string    `json:"challengerId"`
	ChallengerName string    `json:"challengerName"`
	TriggerLabel   string    `json:"triggerLabel"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Recorder persists challenge records.
type Recorder interface {
	SaveChallenge(ctx context.Context, rec *store.ChallengeRecord) error
	UpdateChallengeStatus(ctx context.Context, sessionID string, status store.ChallengeStatus) error
}

// TimeoutHandler resolves an expired challenge against the fallback opponent.
type TimeoutHandler func(c Challenge)

type pending struct {
	challenge Challenge
	// cancel stops the timeout; calling it is the only way a challenge leaves the pending set
	// before expiry.
	cancel func() bool
}

// Negotiator owns the pending challenge state machine.
type Negotiator struct {
	mu        sync.Mutex
	pending   map[string]*pending
	recorder  Recorder
	emitter   broadcast.Emitter
	onTimeout TimeoutHandler
	now       func() time.Time
}

func NewNegotiator(recorder Recorder, emitter broadcast.Emitter) *Negotiator {
	if emitter == nil {
		emitter = broadcast.Nop{}
	}
	return &Negotiator{
		pending:  make(map[string]*pending),
		recorder: recorder,
		emitter:  emitter,
		now:      time.Now,
	}
}

// OnTimeout installs the handler invoked after a challenge expires.
func (n *Negotiator) OnTimeout(h TimeoutHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.onTimeout = h
}

// Create opens a challenge and arms its timeout.
func (n *Negotiator) Create(ctx context.Context, gameType, challengerID, challengerName, triggerLabel string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return "", fmt.Errorf("challenge timeout must be positive, got %v", timeout)
	}

	now := n.now().UTC()
	c := Challenge{
		SessionID:      uuid.NewString(),
		GameType:       gameType,
		ChallengerID:   challengerID,
		ChallengerName: challengerName,
		TriggerLabel:   triggerLabel,
		CreatedAt:      now,
		ExpiresAt:      now.Add(timeout),
	}

	n.mu.Lock()
	timer := time.AfterFunc(timeout, func() { n.expire(c.SessionID) })
	n.pending[c.SessionID] = &pending{challenge: c, cancel: timer.Stop}
	n.mu.Unlock()

	if n.recorder != nil {
		rec := &store.ChallengeRecord{
			SessionID:      c.SessionID,
			GameType:       c.GameType,
			ChallengerID:   c.ChallengerID,
			ChallengerName: c.ChallengerName,
			TriggerLabel:   c.TriggerLabel,
			Status:         store.ChallengePending,
			CreatedAt:      c.CreatedAt,
			ExpiresAt:      c.ExpiresAt,
			UpdatedAt:      c.CreatedAt,
		}
		if err := n.recorder.SaveChallenge(ctx, rec); err != nil {
			logrus.Errorf("failed to persist challenge %s: %v", c.SessionID, err)
		}
	}

	logrus.Infof("challenge %s created by %s for %s, expires in %v", c.SessionID, challengerID, gameType, timeout)
	n.emitter.Emit(broadcast.EventChallengeCreated, map[string]interface{}{
		"sessionId":        c.SessionID,
		"gameType":         c.GameType,
		"challengerId":     c.ChallengerID,
		"challengerName":   c.ChallengerName,
		"triggerLabel":     c.TriggerLabel,
		"expiresAt":        c.ExpiresAt,
		"expiresInSeconds": int(math.Ceil(timeout.Seconds())),
	})

	return c.SessionID, nil
}

// take removes a pending challenge, cancelling its timeout first.
func (n *Negotiator) take(sessionID string) (Challenge, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.pending[sessionID]
	if !ok {
		return Challenge{}, false
	}
	p.cancel()
	delete(n.pending, sessionID)
	return p.challenge, true
}

// Accept resolves the challenge for session start.
func (n *Negotiator) Accept(ctx context.Context, sessionID string) (Challenge, error) {
	c, ok := n.take(sessionID)
	if !ok {
		logrus.Warnf("accept for unknown or resolved challenge %s", sessionID)
		return Challenge{}, fmt.Errorf("%w: %s", ErrChallengeNotFound, sessionID)
	}

	n.updateStatus(ctx, sessionID, store.ChallengeAccepted)
	logrus.Infof("challenge %s accepted", sessionID)
	return c, nil
}

// Reject drops the challenge; no game is produced.
func (n *Negotiator) Reject(ctx context.Context, sessionID string) (Challenge, error) {
	c, ok := n.take(sessionID)
	if !ok {
		logrus.Warnf("reject for unknown or resolved challenge %s", sessionID)
		return Challenge{}, fmt.Errorf("%w: %s", ErrChallengeNotFound, sessionID)
	}

	n.updateStatus(ctx, sessionID, store.ChallengeRejected)
	logrus.Infof("challenge %s rejected", sessionID)
	n.emitter.Emit(broadcast.EventChallengeRejected, map[string]interface{}{
		"sessionId":      c.SessionID,
		"gameType":       c.GameType,
		"challengerId":   c.ChallengerID,
		"challengerName": c.ChallengerName,
	})
	return c, nil
}

func (n *Negotiator) expire(sessionID string) {
	n.mu.Lock()
	p, ok := n.pending[sessionID]
	if ok {
		delete(n.pending, sessionID)
	}
	handler := n.onTimeout
	n.mu.Unlock()

	if !ok {
		return
	}

	c := p.challenge
	n.updateStatus(context.Background(), sessionID, store.ChallengeTimedOut)
	logrus.Infof("challenge %s timed out, falling back to host", sessionID)
	n.emitter.Emit(broadcast.EventChallengeTimeout, map[string]interface{}{
		"sessionId":      c.SessionID,
		"gameType":       c.GameType,
		"challengerId":   c.ChallengerID,
		"challengerName": c.ChallengerName,
	})

	if handler != nil {
		handler(c)
	}
}

func (n *Negotiator) updateStatus(ctx context.Context, sessionID string, status store.ChallengeStatus) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.UpdateChallengeStatus(ctx, sessionID, status); err != nil {
		logrus.Errorf("failed to mark challenge %s as %s: %v", sessionID, status, err)
	}
}

// Get returns a pending challenge.
func (n *Negotiator) Get(sessionID string) (Challenge, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.pending[sessionID]
	if !ok {
		return Challenge{}, false
	}
	return p.challenge, true
}

// Pending returns the number of open challenges.
func (n *Negotiator) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.pending)
}

// Shutdown cancels every pending challenge without resolving it.
func (n *Negotiator) Shutdown() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := len(n.pending)
	for id, p := range n.pending {
		p.cancel()
		delete(n.pending, id)
	}
	return count
}
