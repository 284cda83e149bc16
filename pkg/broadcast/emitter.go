package broadcast

// Event names pushed to overlay listeners.
const (
	EventChallengeCreated  = "challenge_created"
	EventChallengeRejected = "challenge_rejected"
	EventChallengeTimeout  = "challenge_timeout"
	EventGameStarted       = "game_started"
	EventGameEnded         = "game_ended"
	EventTimerUpdate       = "timer_update"
	EventQueuePosition     = "queue_position"
	EventQueueUpdated      = "queue_updated"
	EventNewStreakRecord   = "new_streak_record"
	EventMoveRejected      = "move_rejected"
	EventMoveApplied       = "move_applied"
)

// Emitter delivers user-facing notifications. Emit is fire-and-forget.
type Emitter interface {
	Emit(event string, payload interface{})
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload interface{})

func (f EmitterFunc) Emit(event string, payload interface{}) { f(event, payload) }

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(string, interface{}) {}

// Fanout emits to every wrapped emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(event string, payload interface{}) {
	for _, e := range f {
		if e != nil {
			e.Emit(event, payload)
		}
	}
}
