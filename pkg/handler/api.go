package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// API is the HTTP surface used by the stream bridge, moderators and overlays.
type API struct {
	orchestrator Orchestrator
	history      HistoryReader
	ratings      RatingReader
	health       Pinger
	overlay      http.Handler
	timeout      time.Duration
}

// APIConfig carries the optional collaborators; nil ones disable their routes.
type APIConfig struct {
	History HistoryReader
	Ratings RatingReader
	Health  Pinger
	// Overlay serves the websocket feed at /ws.
	Overlay http.Handler
	Timeout time.Duration
}

func NewAPI(orchestrator Orchestrator, cfg APIConfig) *API {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &API{
		orchestrator: orchestrator,
		history:      cfg.History,
		ratings:      cfg.Ratings,
		health:       cfg.Health,
		overlay:      cfg.Overlay,
		timeout:      cfg.Timeout,
	}
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	if a.overlay != nil {
		// Websocket upgrades must not sit behind the request timeout.
		r.Handle("/ws", a.overlay)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(a.timeout))

		r.Post("/triggers", a.handleTrigger)
		r.Post("/games", a.handleStartGame)
		r.Get("/state", a.handleState)
		r.Get("/queue", a.handleQueue)

		r.Route("/challenges/{sessionID}", func(r chi.Router) {
			r.Post("/accept", a.handleAccept)
			r.Post("/reject", a.handleReject)
		})

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", a.handleGetSession)
			r.Post("/moves", a.handleMove)
			r.Post("/resign", a.handleResign)
			r.Post("/cancel", a.handleCancel)
		})

		r.Route("/players/{playerID}", func(r chi.Router) {
			r.Get("/history", a.handleHistory)
			r.Get("/ratings/{gameType}", a.handleRating)
		})
	})

	return r
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: middleware.GetReqID(r.Context())})
}

// decode reads a JSON body. An empty body leaves v untouched when optional is set.
func decode(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var event trigger.Event
	if err := decode(r, &event, false); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(event.ActorID) == "" {
		writeError(w, r, fmt.Errorf("%w: actorId is required", errBadRequest))
		return
	}

	result, err := a.orchestrator.HandleTrigger(r.Context(), event)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

type startGameRequest struct {
	GameType    string `json:"gameType"`
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	TimeControl string `json:"timeControl,omitempty"`
}

func (a *API) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.GameType == "" || req.PlayerID == "" {
		writeError(w, r, fmt.Errorf("%w: gameType and playerId are required", errBadRequest))
		return
	}

	opts := game.Options{}
	if req.TimeControl != "" {
		opts[lifecycle.OptionTimeControl] = req.TimeControl
	}
	sess, err := a.orchestrator.StartGame(r.Context(), req.GameType,
		game.Player{ID: req.PlayerID, DisplayName: req.PlayerName}, "manual", req.GameType, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, http.StatusCreated, sess.ID)
}

func (a *API) writeSession(w http.ResponseWriter, status int, sessionID string) {
	view, ok := a.orchestrator.View(sessionID)
	if !ok {
		// Single-move games can end before the response is written.
		writeJSON(w, status, map[string]string{"sessionId": sessionID, "status": "ended"})
		return
	}
	writeJSON(w, status, view)
}

type acceptRequest struct {
	OpponentID   string `json:"opponentId"`
	OpponentName string `json:"opponentName"`
}

func (a *API) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := decode(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	var opponent *game.Player
	if req.OpponentID != "" {
		opponent = &game.Player{ID: req.OpponentID, DisplayName: req.OpponentName}
	}
	sess, err := a.orchestrator.AcceptChallenge(r.Context(), chi.URLParam(r, "sessionID"), opponent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, http.StatusOK, sess.ID)
}

func (a *API) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := a.orchestrator.RejectChallenge(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, ok := a.orchestrator.View(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, lifecycle.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type moveRequest struct {
	ActorID string `json:"actorId"`
	Input   string `json:"input"`
}

type moveResponse struct {
	game.MoveResult
	RequestID string `json:"requestId,omitempty"`
}

func (a *API) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ActorID == "" {
		writeError(w, r, fmt.Errorf("%w: actorId is required", errBadRequest))
		return
	}

	result, err := a.orchestrator.ApplyMove(r.Context(), chi.URLParam(r, "sessionID"), req.ActorID, req.Input)
	switch {
	case errors.Is(err, lifecycle.ErrInvalidMove):
		writeJSON(w, http.StatusBadRequest, moveResponse{MoveResult: result, RequestID: middleware.GetReqID(r.Context())})
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, moveResponse{MoveResult: result})
	}
}

type resignRequest struct {
	ActorID string `json:"actorId"`
}

func (a *API) handleResign(w http.ResponseWriter, r *http.Request) {
	var req resignRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.orchestrator.Resign(r.Context(), chi.URLParam(r, "sessionID"), req.ActorID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.orchestrator.CancelGame(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orchestrator.State())
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orchestrator.QueuePositions())
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "history is not enabled"})
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	results, err := a.history.RecentForPlayer(r.Context(), chi.URLParam(r, "playerID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (a *API) handleRating(w http.ResponseWriter, r *http.Request) {
	if a.ratings == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "ratings are not enabled"})
		return
	}

	playerID, gameType := chi.URLParam(r, "playerID"), chi.URLParam(r, "gameType")
	rating, err := a.ratings.GetRating(r.Context(), playerID, gameType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId": playerID,
		"gameType": gameType,
		"rating":   rating,
	})
}
