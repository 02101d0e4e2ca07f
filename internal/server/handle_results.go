package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/playperu/chizuquiz/internal/room"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 200
)

func handleListResults(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultResultsLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxResultsLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
				return
			}
			limit = n
		}

		items, err := store.ListResults(r.Context(), limit)
		if err != nil {
			logger.Error("listing results", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if items == nil {
			items = []ResultItem{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// ResultRecorder returns a room.Options.OnFinish hook that stores results.
// It runs on the room goroutine, so the write gets its own short deadline.
func ResultRecorder(logger *slog.Logger, store Store) func(room.Result) {
	return func(res room.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.RecordResult(ctx, res); err != nil {
			logger.Error("recording result", "room_id", res.RoomID, "error", err)
		}
	}
}
