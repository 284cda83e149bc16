package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/challenge"
	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/metrics"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
	"github.com/AccelByte/extend-stream-duels/pkg/rating"
	"github.com/AccelByte/extend-stream-duels/pkg/session"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidMove     = errors.New("invalid move")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownTrigger  = errors.New("trigger does not match any enabled game")
	ErrPlayerBusy      = errors.New("player is already in a session")
	ErrClosed          = errors.New("controller is shut down")
)

// End reasons.
const (
	ReasonWin       = "win"
	ReasonDraw      = "draw"
	ReasonResign    = "resign"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// DefaultGraceDelay lets overlays finish their end-of-game transition before the next start.
const DefaultGraceDelay = 2 * time.Second

// Host is the streamer, the fallback opponent for every game.
type Host struct {
	ID          string
	DisplayName string
}

// Config wires the controller to its collaborators.
type Config struct {
	Games   *gameconfig.Config
	Rules   *game.Registry
	Store   store.Store
	History history.Recorder
	Ledger  ledger.Ledger
	Emitter broadcast.Emitter
	Dedup   *trigger.Deduplicator
	Host    Host

	GraceDelay      time.Duration
	WatchdogTimeout time.Duration
}

// Controller composes dedup, negotiation, queues, the registry, clocks and scoring.
// One mutex guards the surface; queue calls are always made without holding it.
type Controller struct {
	mu        sync.Mutex
	pendingID string
	activeID  string
	closed    bool
	timers    map[*time.Timer]struct{}

	games      *gameconfig.Config
	rules      *game.Registry
	store      store.Store
	history    history.Recorder
	emitter    broadcast.Emitter
	dedup      *trigger.Deduplicator
	host       Host
	graceDelay time.Duration

	registry   *session.Registry
	negotiator *challenge.Negotiator
	scorer     *rating.Engine
	structured *queue.StructuredQueue
	legacy     *queue.LegacyQueue
}

// New builds a controller.
func New(cfg Config) *Controller {
	if cfg.Emitter == nil {
		cfg.Emitter = broadcast.Nop{}
	}
	if cfg.Games == nil {
		cfg.Games = &gameconfig.Config{}
	}
	if cfg.Rules == nil {
		cfg.Rules = game.NewRegistry()
	}
	if cfg.Dedup == nil {
		cfg.Dedup = trigger.NewDeduplicator(0, 0)
	}
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultGraceDelay
	}
	if cfg.Host.ID == "" {
		cfg.Host.ID = "host"
	}
	if cfg.Host.DisplayName == "" {
		cfg.Host.DisplayName = cfg.Host.ID
	}

	c := &Controller{
		timers:     make(map[*time.Timer]struct{}),
		games:      cfg.Games,
		rules:      cfg.Rules,
		store:      cfg.Store,
		history:    cfg.History,
		emitter:    cfg.Emitter,
		dedup:      cfg.Dedup,
		host:       cfg.Host,
		graceDelay: cfg.GraceDelay,
	}

	var lookup session.PlayerLookup
	var challengeRecorder challenge.Recorder
	var ratingStore rating.Store
	if cfg.Store != nil {
		lookup, challengeRecorder, ratingStore = cfg.Store, cfg.Store, cfg.Store
	}

	c.registry = session.NewRegistry(lookup)
	c.negotiator = challenge.NewNegotiator(challengeRecorder, cfg.Emitter)
	c.negotiator.OnTimeout(c.onChallengeTimeout)
	c.scorer = rating.NewEngine(ratingStore, cfg.Ledger, cfg.Emitter)

	surface := queue.SurfaceFunc(c.Busy)
	c.structured = queue.NewStructuredQueue(surface, c.negotiate, c.announcer("structured"))
	c.legacy = queue.NewLegacyQueue(surface, c.startQueued, c.announcer("legacy"), cfg.WatchdogTimeout)

	return c
}

// Busy reports whether a challenge or a session holds the surface.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.busyLocked()
}

func (c *Controller) busyLocked() bool {
	return c.pendingID != "" || c.activeID != ""
}

func (c *Controller) queueFor(g gameconfig.GameConfig) queue.Manager {
	if g.RequiresNegotiation {
		return c.structured
	}
	return c.legacy
}

func (c *Controller) announcer(name string) queue.Announcer {
	return func(waiting []queue.Position) {
		metrics.QueueDepth.WithLabelValues(name).Set(float64(len(waiting)))
		for _, p := range waiting {
			c.emitter.Emit(broadcast.EventQueuePosition, p)
		}
		c.emitter.Emit(broadcast.EventQueueUpdated, map[string]interface{}{
			"queue":   name,
			"waiting": waiting,
		})
	}
}

// negotiate is the structured queue's dispatcher: it opens a challenge for the head entry.
func (c *Controller) negotiate(e queue.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.busyLocked() {
		return queue.ErrSurfaceBusy
	}

	g, ok := c.games.Get(e.GameType)
	if !ok {
		return game.ErrUnknownGameType
	}

	id, err := c.negotiator.Create(context.Background(), e.GameType, e.ViewerID, e.ViewerName, e.TriggerValue, g.ChallengeTimeout())
	if err != nil {
		return err
	}
	c.pendingID = id
	metrics.Challenges.WithLabelValues(e.GameType, "created").Inc()
	return nil
}

// startQueued is the legacy queue's dispatcher: it starts the head entry against the host.
func (c *Controller) startQueued(e queue.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.busyLocked() {
		return queue.ErrSurfaceBusy
	}

	_, err := c.startLocked(context.Background(), startRequest{
		gameType:     e.GameType,
		challenger:   game.Player{ID: e.ViewerID, DisplayName: e.ViewerName},
		triggerType:  e.TriggerType,
		triggerValue: e.TriggerValue,
	})
	return err
}

// scheduleAdvance pokes both queues once the grace delay has passed.
func (c *Controller) scheduleAdvance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(c.graceDelay, func() {
		c.mu.Lock()
		delete(c.timers, timer)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		c.legacy.ProcessNext()
		c.structured.Advance()
	})
	c.timers[timer] = struct{}{}
}

// SurfaceState is a point-in-time view of the surface and both queues.
type SurfaceState struct {
	PendingChallenge *challenge.Challenge `json:"pendingChallenge,omitempty"`
	ActiveSessionID  string               `json:"activeSessionId,omitempty"`
	Structured       []queue.Position     `json:"structuredQueue"`
	Legacy           []queue.Position     `json:"legacyQueue"`
}

// State returns the current surface and queue contents.
func (c *Controller) State() SurfaceState {
	c.mu.Lock()
	pendingID, activeID := c.pendingID, c.activeID
	c.mu.Unlock()

	state := SurfaceState{
		ActiveSessionID: activeID,
		Structured:      c.structured.Positions(),
		Legacy:          c.legacy.Positions(),
	}
	if pendingID != "" {
		if ch, ok := c.negotiator.Get(pendingID); ok {
			state.PendingChallenge = &ch
		}
	}
	return state
}

// QueuePositions returns every waiting viewer keyed by queue name.
func (c *Controller) QueuePositions() map[string][]queue.Position {
	return map[string][]queue.Position{
		"structured": c.structured.Positions(),
		"legacy":     c.legacy.Positions(),
	}
}

// Session returns a live session.
func (c *Controller) Session(id string) (*session.GameSession, bool) {
	return c.registry.Get(id)
}

// SessionView is the read model of a live session.
type SessionView struct {
	SessionID   string                 `json:"sessionId"`
	GameType    string                 `json:"gameType"`
	Kind        game.Kind              `json:"kind"`
	Players     [2]game.Player         `json:"players"`
	StartedAt   time.Time              `json:"startedAt"`
	TimeControl string                 `json:"timeControl,omitempty"`
	Clock       *clock.Snapshot        `json:"clock,omitempty"`
	State       map[string]interface{} `json:"state"`
}

// View snapshots a live session. Rules state is read under the controller lock.
func (c *Controller) View(id string) (SessionView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.registry.Get(id)
	if !ok || !sess.Active() {
		return SessionView{}, false
	}

	view := SessionView{
		SessionID: sess.ID,
		GameType:  sess.GameType,
		Kind:      sess.Kind,
		Players:   sess.Players,
		StartedAt: sess.StartedAt,
		State:     sess.Rules.PublicState(),
	}
	if sess.TimeControl != nil {
		view.TimeControl = sess.TimeControl.String()
	}
	if clk := sess.Clock(); clk != nil {
		snap := clk.Snapshot()
		view.Clock = &snap
	}
	return view, true
}

// Shutdown cancels pending challenges and timers and stops every clock.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	c.closed = true
	for timer := range c.timers {
		timer.Stop()
		delete(c.timers, timer)
	}
	c.pendingID, c.activeID = "", ""
	c.mu.Unlock()

	challenges := c.negotiator.Shutdown()
	sessions := c.registry.Shutdown()
	logrus.Infof("lifecycle controller stopped: %d challenges cancelled, %d sessions discarded", challenges, sessions)
}
