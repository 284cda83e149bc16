package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWatchdog is how long a dequeue may hold the processing flag before it is forced free.
const DefaultWatchdog = 30 * time.Second

// LegacyQueue is the plain FIFO used by games that start without negotiation.
type LegacyQueue struct {
	mu    sync.Mutex
	items []Entry

	processing atomic.Bool
	// holder identifies the attempt owning the processing flag; guarded by mu.
	holder   uint64
	attempts uint64
	watchdog *time.Timer

	surface         Surface
	start           Dispatcher
	announce        Announcer
	watchdogTimeout time.Duration
}

func NewLegacyQueue(surface Surface, start Dispatcher, announce Announcer, watchdog time.Duration) *LegacyQueue {
	if surface == nil {
		surface = SurfaceFunc(func() bool { return false })
	}
	if watchdog <= 0 {
		watchdog = DefaultWatchdog
	}
	return &LegacyQueue{
		surface:         surface,
		start:           start,
		announce:        announce,
		watchdogTimeout: watchdog,
	}
}

func (q *LegacyQueue) acquire() (uint64, bool) {
	if !q.processing.CompareAndSwap(false, true) {
		return 0, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.attempts++
	id := q.attempts
	q.holder = id
	q.watchdog = time.AfterFunc(q.watchdogTimeout, func() {
		if q.release(id) {
			logrus.Warnf("legacy queue processing stuck for %v, force-released", q.watchdogTimeout)
		}
	})
	return id, true
}

// release frees the flag if attempt id still owns it.
func (q *LegacyQueue) release(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.holder != id {
		return false
	}
	q.holder = 0
	if q.watchdog != nil {
		q.watchdog.Stop()
		q.watchdog = nil
	}
	q.processing.Store(false)
	return true
}

// HandleStart starts the game right away when the surface is free, otherwise queues it.
// It returns the 1-based position, or 0 when the game started.
func (q *LegacyQueue) HandleStart(e Entry) (int, error) {
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}

	id, ok := q.acquire()
	if !ok {
		return q.append(e), nil
	}

	q.mu.Lock()
	waitingAhead := len(q.items) > 0
	q.mu.Unlock()

	if waitingAhead || q.surface.Busy() {
		position := q.append(e)
		q.release(id)
		if waitingAhead && !q.surface.Busy() {
			q.ProcessNext()
		}
		return position, nil
	}

	err := q.start(e)
	if errors.Is(err, ErrSurfaceBusy) {
		position := q.prepend(e)
		q.release(id)
		return position, nil
	}
	q.release(id)

	return 0, err
}

func (q *LegacyQueue) append(e Entry) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, e)
	logrus.Infof("%s queued for %s at position %d", e.ViewerID, e.GameType, len(q.items))
	return len(q.items)
}

func (q *LegacyQueue) prepend(e Entry) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append([]Entry{e}, q.items...)
	return 1
}

// Submit implements Manager.
func (q *LegacyQueue) Submit(e Entry) (int, error) { return q.HandleStart(e) }

// Release implements Manager.
func (q *LegacyQueue) Release() { q.ProcessNext() }

// Advance implements Manager.
func (q *LegacyQueue) Advance() bool { return q.ProcessNext() }

// ProcessNext starts the head of the queue if the surface is free.
// Entries whose start fails are dropped and the next one is tried.
func (q *LegacyQueue) ProcessNext() bool {
	id, ok := q.acquire()
	if !ok {
		logrus.Debug("legacy queue already processing")
		return false
	}
	defer q.release(id)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return false
		}
		q.mu.Unlock()

		if q.surface.Busy() {
			return false
		}

		q.mu.Lock()
		entry := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		err := q.start(entry)
		switch {
		case err == nil:
			if q.announce != nil {
				q.announce(q.Positions())
			}
			return true
		case errors.Is(err, ErrSurfaceBusy):
			q.prepend(entry)
			return false
		default:
			logrus.Warnf("queued start for %s (%s) failed: %v", entry.ViewerID, entry.GameType, err)
		}
	}
}

// Len returns the number of waiting entries.
func (q *LegacyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Positions returns the waiting line.
func (q *LegacyQueue) Positions() []Position {
	q.mu.Lock()
	defer q.mu.Unlock()

	return positions(q.items)
}
