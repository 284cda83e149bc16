package clock

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/sirupsen/logrus"
)

// throttleSlack absorbs ticker jitter so coarse ticks still emit every 500ms.
const throttleSlack = 10 * time.Millisecond

// Config wires a clock to its session.
type Config struct {
	TimeControl TimeControl
	// Guard is consulted before every tick; returning false stops the clock silently.
	Guard func() bool
	// OnUpdate receives throttled snapshots.
	OnUpdate func(Snapshot)
	// OnFlag is called once, from the clock goroutine, when a side runs out of time.
	OnFlag func(loser game.Side)
}

type tickResult int

const (
	tickContinue tickResult = iota
	tickModeChanged
	tickFinished
)

// Clock drives a State from a ticker whose period follows the state's mode.
type Clock struct {
	mu       sync.Mutex
	state    *State
	cfg      Config
	lastEmit time.Time
	stopped  bool
	done     chan struct{}
	reset    chan struct{}
	now      func() time.Time
}

// Start creates a running clock with the first seat to move.
func Start(cfg Config) *Clock {
	c := &Clock{
		state: NewState(cfg.TimeControl, time.Now()),
		cfg:   cfg,
		done:  make(chan struct{}),
		reset: make(chan struct{}, 1),
		now:   time.Now,
	}
	go c.run()
	return c
}

func (c *Clock) run() {
	for {
		c.mu.Lock()
		interval := c.state.Mode().Interval()
		c.mu.Unlock()

		if !c.runInterval(interval) {
			return
		}
	}
}

// runInterval ticks at one granularity. It returns false once the clock is finished
// and true when the ticker must be recreated for a new mode.
func (c *Clock) runInterval(interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return false
		case <-c.reset:
			return true
		case <-ticker.C:
			switch c.tick() {
			case tickModeChanged:
				return true
			case tickFinished:
				return false
			}
		}
	}
}

func (c *Clock) tick() tickResult {
	if c.cfg.Guard != nil && !c.cfg.Guard() {
		c.Stop()
		return tickFinished
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return tickFinished
	}

	now := c.now()
	if c.state.Advance(now) {
		loser := c.state.Active()
		c.stopLocked()
		c.mu.Unlock()

		logrus.Infof("clock flagged: side %s ran out of time", loser)
		if c.cfg.OnFlag != nil {
			c.cfg.OnFlag(loser)
		}
		return tickFinished
	}

	result := tickContinue
	if c.applyModeLocked() {
		result = tickModeChanged
	}
	c.emitLocked(now)
	c.mu.Unlock()

	return result
}

func (c *Clock) applyModeLocked() bool {
	desired := c.state.DesiredMode()
	if desired == c.state.Mode() {
		return false
	}
	logrus.Debugf("clock switching from %s to %s ticks", c.state.Mode(), desired)
	c.state.SetMode(desired)
	return true
}

func (c *Clock) emitLocked(now time.Time) {
	if c.cfg.OnUpdate == nil {
		return
	}
	if !c.lastEmit.IsZero() && now.Sub(c.lastEmit) < UpdateThrottle-throttleSlack {
		return
	}
	c.lastEmit = now
	c.cfg.OnUpdate(c.state.Snapshot())
}

// Switch hands the turn from mover to the opponent, crediting the increment.
// It returns true if the mover had already flagged; the caller owns ending the game then.
func (c *Clock) Switch(mover game.Side) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}
	if c.state.Switch(mover, c.now()) {
		c.stopLocked()
		return true
	}
	if c.applyModeLocked() {
		select {
		case c.reset <- struct{}{}:
		default:
		}
	}
	return false
}

// Stop tears the clock down. Only the first call has an effect; it reports whether
// this call was the one that stopped it.
func (c *Clock) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopLocked()
}

func (c *Clock) stopLocked() bool {
	if c.stopped {
		return false
	}
	c.stopped = true
	close(c.done)
	return true
}

// Snapshot returns the current remaining times.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Snapshot()
}
