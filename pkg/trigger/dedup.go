package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultWindow        = 1000 * time.Millisecond
	DefaultSweepInterval = 5 * time.Second
)

// Deduplicator collapses repeated trigger events from the same actor.
type Deduplicator struct {
	mu            sync.Mutex
	entries       map[string]time.Time
	window        time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

// NewDeduplicator creates a deduplicator. Zero durations select the defaults.
func NewDeduplicator(window, sweepInterval time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Deduplicator{
		entries:       make(map[string]time.Time),
		window:        window,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// Ingest decides whether an event may proceed to orchestration.
// matches tells whether the event maps to an actionable trigger; only those are remembered.
func (d *Deduplicator) Ingest(e Event, matches bool) bool {
	if e.IsStreakFinal != nil && !*e.IsStreakFinal {
		logrus.Debugf("gift streak from %s still in progress, waiting for final event", e.ActorID)
		return false
	}
	if !matches {
		return false
	}

	key := Key(e)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if seen, ok := d.entries[key]; ok {
		if elapsed := now.Sub(seen); elapsed < d.window {
			logrus.Warnf("duplicate trigger %q from %s dropped (%dms after previous)",
				e.TriggerLabel, e.ActorID, elapsed.Milliseconds())
			return false
		}
	}

	d.entries[key] = now
	return true
}

// Sweep drops entries older than the window and returns how many were removed.
func (d *Deduplicator) Sweep() int {
	cutoff := d.now().Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, seen := range d.entries {
		if seen.Before(cutoff) {
			delete(d.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}

// Run sweeps periodically until ctx is cancelled.
func (d *Deduplicator) Run(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := d.Sweep(); removed > 0 {
				logrus.Debugf("dedup sweep removed %d entries", removed)
			}
		}
	}
}
