package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("redis down") }

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_TriggerAcceptMove(t *testing.T) {
	env := setupTestController(t)
	h := NewAPI(env.controller, APIConfig{History: env.history, Ratings: env.store}).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/triggers", map[string]string{"actorId": "ada", "triggerLabel": "!duel"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/triggers", map[string]string{"actorId": "bob", "triggerLabel": "!duel"})
	var queued lifecycle.TriggerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &queued); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !queued.Queued || queued.Position != 1 {
		t.Fatalf("expected bob queued at 1, got %+v", queued)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/queue", nil)
	var positions map[string][]queue.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(positions["structured"]) != 1 || positions["structured"][0].ViewerID != "bob" {
		t.Fatalf("unexpected queue: %+v", positions)
	}

	pending := env.controller.State().PendingChallenge
	rec = doJSON(t, h, http.MethodPost, "/api/v1/challenges/"+pending.SessionID+"/accept", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view lifecycle.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if view.SessionID != pending.SessionID || view.Players[1].ID != "streamer" {
		t.Fatalf("unexpected session view: %+v", view)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/moves", map[string]string{"actorId": "ada", "input": "sideways"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid call, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/moves", map[string]string{"actorId": "ada", "input": "heads"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Ending the duel hands the surface to bob right away.
	state := env.controller.State()
	if state.PendingChallenge == nil || state.PendingChallenge.ChallengerID != "bob" {
		t.Fatalf("expected bob's challenge next, got %+v", state.PendingChallenge)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/players/ada/history", nil)
	var history struct {
		Results []struct {
			SessionID string `json:"sessionId"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(history.Results) != 1 || history.Results[0].SessionID != view.SessionID {
		t.Fatalf("unexpected history: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/players/ada/ratings/coinduel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	env := setupTestController(t)
	h := NewAPI(env.controller, APIConfig{}).Routes()

	if rec := doJSON(t, h, http.MethodPost, "/api/v1/games", map[string]string{"gameType": "coinflip", "playerId": "ada"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"surface busy", http.MethodPost, "/api/v1/games", map[string]string{"gameType": "coinflip", "playerId": "bob"}, http.StatusConflict},
		{"player busy", http.MethodPost, "/api/v1/triggers", map[string]string{"actorId": "ada", "triggerLabel": "!duel"}, http.StatusConflict},
		{"unknown trigger", http.MethodPost, "/api/v1/triggers", map[string]string{"actorId": "cleo", "triggerLabel": "!nope"}, http.StatusNotFound},
		{"missing actor", http.MethodPost, "/api/v1/triggers", map[string]string{"triggerLabel": "!duel"}, http.StatusBadRequest},
		{"unknown challenge", http.MethodPost, "/api/v1/challenges/nope/reject", nil, http.StatusNotFound},
		{"unknown session", http.MethodGet, "/api/v1/sessions/nope", nil, http.StatusNotFound},
		{"cancel unknown", http.MethodPost, "/api/v1/sessions/nope/cancel", nil, http.StatusNotFound},
		{"history disabled", http.MethodGet, "/api/v1/players/ada/history", nil, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAPI_StartGameValidation(t *testing.T) {
	env := setupTestController(t)
	h := NewAPI(env.controller, APIConfig{}).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/games", map[string]string{"gameType": "coinflip", "playerId": "bob", "timeControl": "fast"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad time control, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec = doJSON(t, h, http.MethodPost, "/api/v1/games", map[string]string{"gameType": "chess", "playerId": "bob"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown game, got %d", rec.Code)
	}
	if env.controller.State().ActiveSessionID != "" {
		t.Fatalf("failed starts must leave the surface free")
	}
}

func TestAPI_Health(t *testing.T) {
	env := setupTestController(t)

	h := NewAPI(env.controller, APIConfig{Health: env.store}).Routes()
	if rec := doJSON(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	h = NewAPI(env.controller, APIConfig{Health: failingPinger{}}).Routes()
	if rec := doJSON(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
