package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// handleEvents streams render events for one game. The first event is the
// current state so a reconnecting client can redraw without a second call.
func handleEvents(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := roomFrom(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch := broker.Subscribe(rm.ID)
		defer broker.Unsubscribe(rm.ID, ch)

		view, err := rm.Observe(r.Context())
		if err != nil {
			writeRoomError(w, logger, err)
			return
		}
		state, _ := json.Marshal(view)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		fmt.Fprintf(w, "event: state\ndata: %s\n\n", state)
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-rm.Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: render\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
