package server

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/quiz"
	"github.com/playperu/chizuquiz/internal/room"
)

// GameResponse is returned when a game is created.
type GameResponse struct {
	ID    string    `json:"id"`
	State quiz.View `json:"state"`
}

// InputResponse is returned by every input endpoint. Applied is false when
// the input was ignored in the current state.
type InputResponse struct {
	Applied bool      `json:"applied"`
	State   quiz.View `json:"state"`
}

type MoveRequest struct {
	Direction string  `json:"direction"`
	Step      float64 `json:"step,omitempty"`
}

type PointerRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func handleCreateGame(logger *slog.Logger, rooms *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := rooms.Create()
		if errors.Is(err, quiz.ErrNoRegions) {
			writeError(w, http.StatusServiceUnavailable, "no regions available")
			return
		}
		if err != nil {
			logger.Error("creating game", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		view, err := rm.Observe(r.Context())
		if err != nil {
			writeRoomError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, GameResponse{ID: rm.ID, State: view})
	}
}

func handleGameState(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := roomFrom(r).Observe(r.Context())
		if err != nil {
			writeRoomError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleDeleteGame(rooms *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rooms.Remove(roomFrom(r).ID) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMove(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		d, ok := chizuquiz.ParseDirection(req.Direction)
		if !ok {
			writeError(w, http.StatusBadRequest, "direction must be one of up, down, left, right")
			return
		}
		if req.Step < 0 || math.IsNaN(req.Step) || math.IsInf(req.Step, 0) {
			writeError(w, http.StatusBadRequest, "step must be a positive number")
			return
		}

		rep, err := roomFrom(r).Move(r.Context(), d, req.Step)
		writeInput(w, logger, rep, err)
	}
}

func handleSetPointer(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PointerRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, "lat and lng are required")
			return
		}

		rep, err := roomFrom(r).Place(r.Context(), geo.Point{Lat: *req.Lat, Lng: *req.Lng})
		writeInput(w, logger, rep, err)
	}
}

func handleConfirm(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := roomFrom(r).Confirm(r.Context())
		writeInput(w, logger, rep, err)
	}
}

func handleRestart(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := roomFrom(r).Restart(r.Context())
		writeInput(w, logger, rep, err)
	}
}

func writeInput(w http.ResponseWriter, logger *slog.Logger, rep room.Reply, err error) {
	if err != nil {
		writeRoomError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, InputResponse{Applied: rep.Applied, State: rep.View})
}

func writeRoomError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, room.ErrClosed) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	logger.Error("room command failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
