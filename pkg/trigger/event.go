package trigger

import (
	"strings"
	"time"
)

// Event is one chat command or gift notification from the stream.
type Event struct {
	ActorID          string `json:"actorId"`
	ActorDisplayName string `json:"actorName"`
	// GameType is set when the source already knows which game was requested.
	GameType     string `json:"gameType,omitempty"`
	TriggerLabel string `json:"triggerLabel"`
	GiftID       string `json:"giftId,omitempty"`
	// IsStreakFinal is nil for non-gift events. An explicit false means more
	// events of the same gift streak are still coming.
	IsStreakFinal *bool     `json:"isStreakFinal,omitempty"`
	ReceivedAt    time.Time `json:"-"`
}

// TriggerType is "gift" for gift events and "command" for everything else.
func (e Event) TriggerType() string {
	if e.GiftID != "" || e.IsStreakFinal != nil {
		return "gift"
	}
	return "command"
}

// DisplayName falls back to the actor id.
func (e Event) DisplayName() string {
	if name := strings.TrimSpace(e.ActorDisplayName); name != "" {
		return name
	}
	return e.ActorID
}

// Key is the dedup identity of an event.
func Key(e Event) string {
	return normalize(e.ActorID) + "|" + normalize(e.TriggerLabel) + "|" + normalize(e.GiftID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
