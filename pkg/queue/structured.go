package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StructuredQueue serializes negotiated duel games. At most one dequeue runs at a time
// and the surface stays occupied from a successful negotiation until CompleteProcessing.
type StructuredQueue struct {
	mu        sync.Mutex
	items     []Entry
	occupied  bool
	dequeuing bool

	surface   Surface
	negotiate Dispatcher
	announce  Announcer
}

func NewStructuredQueue(surface Surface, negotiate Dispatcher, announce Announcer) *StructuredQueue {
	if surface == nil {
		surface = SurfaceFunc(func() bool { return false })
	}
	return &StructuredQueue{
		surface:   surface,
		negotiate: negotiate,
		announce:  announce,
	}
}

// ShouldQueue reports whether new requests must wait.
func (q *StructuredQueue) ShouldQueue() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.shouldQueueLocked()
}

func (q *StructuredQueue) shouldQueueLocked() bool {
	return q.occupied || q.dequeuing || q.surface.Busy()
}

// Enqueue appends the entry and, if the surface is free, negotiates the head right away.
// It returns the entry's 1-based position, or 0 if it left the queue immediately.
func (q *StructuredQueue) Enqueue(e Entry) int {
	position, _ := q.enqueue(e)
	return position
}

// enqueue also reports the negotiation error when the entry was dropped on its
// immediate dispatch.
func (q *StructuredQueue) enqueue(e Entry) (int, error) {
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	q.items = append(q.items, e)
	position := len(q.items)
	free := !q.shouldQueueLocked()
	q.mu.Unlock()

	if !free {
		logrus.Infof("%s queued for %s at position %d", e.ViewerID, e.GameType, position)
		return position, nil
	}

	_, err := q.advance(&e)

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item == e {
			return i + 1, nil
		}
	}
	return 0, err
}

// Submit implements Manager. A negotiation failure for e itself is returned.
func (q *StructuredQueue) Submit(e Entry) (int, error) {
	return q.enqueue(e)
}

// CompleteProcessing frees the surface after a session ends and advances immediately.
func (q *StructuredQueue) CompleteProcessing() {
	q.mu.Lock()
	q.occupied = false
	q.mu.Unlock()

	q.Advance()
}

// Release implements Manager.
func (q *StructuredQueue) Release() { q.CompleteProcessing() }

// Advance negotiates the head of the queue if nothing holds the surface.
// Failed negotiations move on to the next entry.
func (q *StructuredQueue) Advance() bool {
	dispatched, _ := q.advance(nil)
	return dispatched
}

// advance runs the dequeue loop. When target is dropped after a failed
// negotiation, that error is returned.
func (q *StructuredQueue) advance(target *Entry) (bool, error) {
	var targetErr error
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.shouldQueueLocked() {
			q.mu.Unlock()
			return false, targetErr
		}
		q.dequeuing = true
		entry := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		err := q.negotiate(entry)

		q.mu.Lock()
		q.dequeuing = false
		switch {
		case err == nil:
			q.occupied = true
		case errors.Is(err, ErrSurfaceBusy):
			q.items = append([]Entry{entry}, q.items...)
		}
		waiting := positions(q.items)
		q.mu.Unlock()

		switch {
		case err == nil:
			if q.announce != nil {
				q.announce(waiting)
			}
			return true, targetErr
		case errors.Is(err, ErrSurfaceBusy):
			logrus.Debugf("surface taken while dequeuing %s, keeping it at the head", entry.ViewerID)
			return false, targetErr
		default:
			logrus.Warnf("negotiation for %s (%s) failed: %v", entry.ViewerID, entry.GameType, err)
			if target != nil && entry == *target {
				targetErr = err
			}
		}
	}
}

// Len returns the number of waiting entries.
func (q *StructuredQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Positions returns the waiting line.
func (q *StructuredQueue) Positions() []Position {
	q.mu.Lock()
	defer q.mu.Unlock()

	return positions(q.items)
}
