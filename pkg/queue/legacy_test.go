package queue

import (
	"errors"
	"testing"
	"time"
)

func TestLegacyQueue_StartsWhenFree(t *testing.T) {
	log := &dispatchLog{}
	q := NewLegacyQueue(&testSurface{}, log.dispatch, nil, 0)

	pos, err := q.HandleStart(Entry{ViewerID: "ada"})
	if err != nil || pos != 0 {
		t.Errorf("HandleStart() = %d, %v; expected immediate start", pos, err)
	}
	if got := log.got(); len(got) != 1 {
		t.Errorf("started %v", got)
	}
}

func TestLegacyQueue_FIFO(t *testing.T) {
	log := &dispatchLog{}
	surface := &testSurface{}
	surface.busy.Store(true)
	var announced []Position
	q := NewLegacyQueue(surface, log.dispatch, func(p []Position) { announced = p }, 0)

	for i, id := range []string{"bob", "cleo", "dan"} {
		pos, err := q.HandleStart(Entry{ViewerID: id})
		if err != nil || pos != i+1 {
			t.Errorf("HandleStart(%s) = %d, %v", id, pos, err)
		}
	}

	if q.ProcessNext() {
		t.Error("ProcessNext() should not start while the surface is busy")
	}

	surface.busy.Store(false)
	if !q.ProcessNext() {
		t.Fatal("ProcessNext() did not start the head")
	}
	if len(announced) != 2 || announced[0].ViewerID != "cleo" || announced[0].Position != 1 {
		t.Errorf("announcement = %+v", announced)
	}

	q.ProcessNext()
	q.ProcessNext()

	got := log.got()
	if len(got) != 3 || got[0] != "bob" || got[1] != "cleo" || got[2] != "dan" {
		t.Errorf("start order = %v", got)
	}
}

func TestLegacyQueue_FailureReleasesFlag(t *testing.T) {
	log := &dispatchLog{fail: map[string]error{"bob": errors.New("rules engine exploded")}}
	surface := &testSurface{}
	surface.busy.Store(true)
	q := NewLegacyQueue(surface, log.dispatch, nil, 0)

	q.HandleStart(Entry{ViewerID: "bob"})
	q.HandleStart(Entry{ViewerID: "cleo"})
	surface.busy.Store(false)

	if !q.ProcessNext() {
		t.Fatal("ProcessNext() should skip the failing entry and start cleo")
	}
	if q.processing.Load() {
		t.Error("processing flag left set")
	}
	if got := log.got(); len(got) != 1 || got[0] != "cleo" {
		t.Errorf("started %v", got)
	}
}

func TestLegacyQueue_HandleStartError(t *testing.T) {
	q := NewLegacyQueue(&testSurface{}, func(Entry) error { return errors.New("unknown game") }, nil, 0)

	if _, err := q.HandleStart(Entry{ViewerID: "ada"}); err == nil {
		t.Error("expected start error to surface")
	}
	if q.processing.Load() {
		t.Error("processing flag left set")
	}
}

func TestLegacyQueue_WatchdogForceReleases(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	q := NewLegacyQueue(&testSurface{}, func(e Entry) error {
		if e.ViewerID == "stuck" {
			close(started)
			<-block
		}
		return nil
	}, nil, 50*time.Millisecond)
	defer close(block)

	go q.HandleStart(Entry{ViewerID: "stuck"})
	<-started

	deadline := time.Now().Add(2 * time.Second)
	for q.processing.Load() {
		if time.Now().After(deadline) {
			t.Fatal("watchdog never released the flag")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if pos, err := q.HandleStart(Entry{ViewerID: "next"}); err != nil || pos != 0 {
		t.Errorf("HandleStart() after watchdog = %d, %v", pos, err)
	}
}

func TestLegacyQueue_ConcurrentSubmitQueues(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	q := NewLegacyQueue(&testSurface{}, func(e Entry) error {
		if e.ViewerID == "ada" {
			close(started)
			<-block
		}
		return nil
	}, nil, 0)

	done := make(chan struct{})
	go func() {
		q.HandleStart(Entry{ViewerID: "ada"})
		close(done)
	}()
	<-started

	if pos, _ := q.HandleStart(Entry{ViewerID: "bob"}); pos != 1 {
		t.Errorf("bob position = %d, expected 1 while ada is starting", pos)
	}
	close(block)
	<-done
}
