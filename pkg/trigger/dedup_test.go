package trigger

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestDeduplicator() (*Deduplicator, *fakeClock) {
	fc := &fakeClock{t: time.Unix(1700000000, 0)}
	d := NewDeduplicator(0, 0)
	d.now = fc.now
	return d, fc
}

func boolPtr(b bool) *bool { return &b }

func TestIngest_CollapsesWithinWindow(t *testing.T) {
	d, fc := newTestDeduplicator()
	ev := Event{ActorID: "ada", TriggerLabel: "Rose", GiftID: "5655"}

	if !d.Ingest(ev, true) {
		t.Fatal("first event should proceed")
	}
	fc.advance(300 * time.Millisecond)
	if d.Ingest(ev, true) {
		t.Error("duplicate within window should be dropped")
	}

	fc.advance(1500 * time.Millisecond)
	if !d.Ingest(ev, true) {
		t.Error("event beyond window should proceed")
	}
}

func TestIngest_KeyNormalization(t *testing.T) {
	d, _ := newTestDeduplicator()

	if !d.Ingest(Event{ActorID: "Ada", TriggerLabel: " Rose "}, true) {
		t.Fatal("first event should proceed")
	}
	if d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose"}, true) {
		t.Error("normalized duplicate should be dropped")
	}
	if !d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose", GiftID: "1"}, true) {
		t.Error("different gift id should proceed")
	}
	if !d.Ingest(Event{ActorID: "bob", TriggerLabel: "rose"}, true) {
		t.Error("different actor should proceed")
	}
}

func TestIngest_StreakInProgress(t *testing.T) {
	d, _ := newTestDeduplicator()

	if d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose", IsStreakFinal: boolPtr(false)}, true) {
		t.Error("in-progress streak should be dropped")
	}
	if d.Len() != 0 {
		t.Error("in-progress streak should not be recorded")
	}
	if !d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose", IsStreakFinal: boolPtr(true)}, true) {
		t.Error("final streak event should proceed")
	}
}

func TestIngest_NonMatchingNotRecorded(t *testing.T) {
	d, _ := newTestDeduplicator()
	ev := Event{ActorID: "ada", TriggerLabel: "hello"}

	if d.Ingest(ev, false) {
		t.Error("non-matching event should not proceed")
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", d.Len())
	}
	if !d.Ingest(ev, true) {
		t.Error("matching event should proceed after a non-matching one")
	}
}

func TestSweep(t *testing.T) {
	d, fc := newTestDeduplicator()
	d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose"}, true)
	fc.advance(600 * time.Millisecond)
	d.Ingest(Event{ActorID: "bob", TriggerLabel: "rose"}, true)

	fc.advance(600 * time.Millisecond)
	if removed := d.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, expected 1", removed)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", d.Len())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	d := NewDeduplicator(10*time.Millisecond, 10*time.Millisecond)
	d.Ingest(Event{ActorID: "ada", TriggerLabel: "rose"}, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for d.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never purged the entry")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestEventTriggerType(t *testing.T) {
	if (Event{TriggerLabel: "!chess"}).TriggerType() != "command" {
		t.Error("expected command")
	}
	if (Event{TriggerLabel: "rose", GiftID: "1"}).TriggerType() != "gift" {
		t.Error("expected gift")
	}
	if (Event{ActorID: "ada"}).DisplayName() != "ada" {
		t.Error("DisplayName() should fall back to actor id")
	}
}
