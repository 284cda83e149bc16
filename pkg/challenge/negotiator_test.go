package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
)

type fakeRecorder struct {
	mu       sync.Mutex
	saved    map[string]*store.ChallengeRecord
	statuses map[string]store.ChallengeStatus
	err      error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		saved:    make(map[string]*store.ChallengeRecord),
		statuses: make(map[string]store.ChallengeStatus),
	}
}

func (f *fakeRecorder) SaveChallenge(_ context.Context, rec *store.ChallengeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[rec.SessionID] = rec
	f.statuses[rec.SessionID] = rec.Status
	return f.err
}

func (f *fakeRecorder) UpdateChallengeStatus(_ context.Context, sessionID string, status store.ChallengeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[sessionID] = status
	return f.err
}

func (f *fakeRecorder) status(id string) store.ChallengeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type recordedEvent struct {
	name    string
	payload interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) Emit(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event, payload})
}

func (f *fakeEmitter) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func (f *fakeEmitter) last(name string) (recordedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].name == name {
			return f.events[i], true
		}
	}
	return recordedEvent{}, false
}

func TestCreate_EmitsCountdown(t *testing.T) {
	rec := newFakeRecorder()
	em := &fakeEmitter{}
	n := NewNegotiator(rec, em)

	id, err := n.Create(context.Background(), "chess", "ada", "Ada", "rose", 30*time.Second)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer n.Shutdown()

	if id == "" || n.Pending() != 1 {
		t.Fatalf("Create() id=%q pending=%d", id, n.Pending())
	}
	if rec.status(id) != store.ChallengePending {
		t.Errorf("status = %q, expected pending", rec.status(id))
	}

	ev, ok := em.last(broadcast.EventChallengeCreated)
	if !ok {
		t.Fatal("challenge_created not emitted")
	}
	payload := ev.payload.(map[string]interface{})
	if payload["expiresInSeconds"] != 30 {
		t.Errorf("expiresInSeconds = %v, expected 30", payload["expiresInSeconds"])
	}

	c, ok := n.Get(id)
	if !ok || c.ExpiresAt.Sub(c.CreatedAt) != 30*time.Second {
		t.Errorf("Get() = %+v, %v", c, ok)
	}
}

func TestCreate_RejectsNonPositiveTimeout(t *testing.T) {
	n := NewNegotiator(nil, nil)
	if _, err := n.Create(context.Background(), "chess", "ada", "Ada", "rose", 0); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestAccept_CancelsTimeout(t *testing.T) {
	rec := newFakeRecorder()
	n := NewNegotiator(rec, &fakeEmitter{})

	fired := make(chan struct{}, 1)
	n.OnTimeout(func(Challenge) { fired <- struct{}{} })

	id, _ := n.Create(context.Background(), "chess", "ada", "Ada", "rose", 50*time.Millisecond)
	c, err := n.Accept(context.Background(), id)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if c.ChallengerID != "ada" {
		t.Errorf("challenger = %q", c.ChallengerID)
	}
	if rec.status(id) != store.ChallengeAccepted {
		t.Errorf("status = %q, expected accepted", rec.status(id))
	}

	select {
	case <-fired:
		t.Error("timeout fired after accept")
	case <-time.After(200 * time.Millisecond):
	}

	if _, err := n.Accept(context.Background(), id); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("second Accept() error = %v, expected ErrChallengeNotFound", err)
	}
}

func TestReject(t *testing.T) {
	rec := newFakeRecorder()
	em := &fakeEmitter{}
	n := NewNegotiator(rec, em)

	id, _ := n.Create(context.Background(), "chess", "ada", "Ada", "rose", time.Minute)
	if _, err := n.Reject(context.Background(), id); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if rec.status(id) != store.ChallengeRejected {
		t.Errorf("status = %q, expected rejected", rec.status(id))
	}
	if em.count(broadcast.EventChallengeRejected) != 1 {
		t.Error("challenge_rejected not emitted")
	}
	if n.Pending() != 0 {
		t.Error("rejected challenge still pending")
	}
	if _, err := n.Reject(context.Background(), id); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("second Reject() error = %v", err)
	}
}

func TestTimeout_ResolvesOnce(t *testing.T) {
	rec := newFakeRecorder()
	em := &fakeEmitter{}
	n := NewNegotiator(rec, em)

	resolved := make(chan Challenge, 2)
	n.OnTimeout(func(c Challenge) { resolved <- c })

	id, _ := n.Create(context.Background(), "chess", "ada", "Ada", "rose", 20*time.Millisecond)

	select {
	case c := <-resolved:
		if c.SessionID != id {
			t.Errorf("resolved %q, expected %q", c.SessionID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}

	if rec.status(id) != store.ChallengeTimedOut {
		t.Errorf("status = %q, expected timed_out", rec.status(id))
	}
	if em.count(broadcast.EventChallengeTimeout) != 1 {
		t.Error("challenge_timeout not emitted once")
	}
	if _, err := n.Accept(context.Background(), id); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("Accept() after timeout error = %v", err)
	}
}

func TestRecorderFailureDoesNotBlock(t *testing.T) {
	rec := newFakeRecorder()
	rec.err = errors.New("redis down")
	n := NewNegotiator(rec, nil)

	id, err := n.Create(context.Background(), "chess", "ada", "Ada", "rose", time.Minute)
	if err != nil {
		t.Fatalf("Create() should tolerate persistence failure, got %v", err)
	}
	if _, err := n.Accept(context.Background(), id); err != nil {
		t.Errorf("Accept() error = %v", err)
	}
}

func TestShutdown(t *testing.T) {
	n := NewNegotiator(nil, nil)
	fired := make(chan struct{}, 1)
	n.OnTimeout(func(Challenge) { fired <- struct{}{} })

	_, _ = n.Create(context.Background(), "chess", "ada", "Ada", "rose", 30*time.Millisecond)
	if got := n.Shutdown(); got != 1 {
		t.Errorf("Shutdown() = %d, expected 1", got)
	}

	select {
	case <-fired:
		t.Error("timeout fired after shutdown")
	case <-time.After(150 * time.Millisecond):
	}
}
