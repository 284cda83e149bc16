package handler

import (
	"errors"
	"net/http"

	"github.com/AccelByte/extend-stream-duels/pkg/challenge"
	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/queue"
	"google.golang.org/grpc/codes"
)

var errBadRequest = errors.New("bad request")

// classify maps domain errors onto one HTTP status and one gRPC code.
func classify(err error) (int, codes.Code) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, lifecycle.ErrInvalidMove),
		errors.Is(err, clock.ErrInvalidTimeControl):
		return http.StatusBadRequest, codes.InvalidArgument
	case errors.Is(err, lifecycle.ErrSessionNotFound),
		errors.Is(err, challenge.ErrChallengeNotFound),
		errors.Is(err, lifecycle.ErrUnknownTrigger),
		errors.Is(err, game.ErrUnknownGameType):
		return http.StatusNotFound, codes.NotFound
	case errors.Is(err, lifecycle.ErrPlayerBusy),
		errors.Is(err, queue.ErrSurfaceBusy):
		return http.StatusConflict, codes.FailedPrecondition
	case errors.Is(err, lifecycle.ErrClosed):
		return http.StatusServiceUnavailable, codes.Unavailable
	default:
		return http.StatusInternalServerError, codes.Internal
	}
}
