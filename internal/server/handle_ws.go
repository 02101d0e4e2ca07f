package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/quiz"
	"github.com/playperu/chizuquiz/internal/room"
)

// WSCommand is a client message on the game socket.
type WSCommand struct {
	Type      string   `json:"type"` // move, place, confirm, restart, state
	Direction string   `json:"direction,omitempty"`
	Step      float64  `json:"step,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

// WSMessage is a server message on the game socket: a reply to a command
// ("state"), a pushed render event ("render") or a rejected command ("error").
type WSMessage struct {
	Type    string          `json:"type"`
	Applied *bool           `json:"applied,omitempty"`
	State   *quiz.View      `json:"state,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var errBadCommand = errors.New("bad command")

func handleWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := roomFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		ch := broker.Subscribe(rm.ID)
		defer broker.Unsubscribe(rm.ID, ch)

		// Events published from here on queue in ch until the forwarder
		// starts, so the snapshot always reaches the client first.
		view, err := rm.Observe(ctx)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "game closed")
			return
		}
		if err := wsjson.Write(ctx, conn, WSMessage{Type: "state", State: &view}); err != nil {
			return
		}

		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case <-rm.Done():
					conn.Close(websocket.StatusGoingAway, "game closed")
					return
				case data := <-ch:
					if err := wsjson.Write(ctx, conn, WSMessage{Type: "render", Event: data}); err != nil {
						logger.Debug("websocket write failed", "error", err)
						return
					}
				}
			}
		}()

		for {
			var cmd WSCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				logger.Debug("websocket read ended", "error", err)
				return
			}

			rep, err := dispatchWS(ctx, rm, cmd)
			switch {
			case errors.Is(err, errBadCommand):
				err = wsjson.Write(ctx, conn, WSMessage{Type: "error", Error: err.Error()})
			case errors.Is(err, room.ErrClosed):
				conn.Close(websocket.StatusGoingAway, "game closed")
				return
			case err != nil:
				logger.Debug("websocket command failed", "error", err)
				return
			default:
				err = wsjson.Write(ctx, conn, WSMessage{Type: "state", Applied: &rep.Applied, State: &rep.View})
			}
			if err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func dispatchWS(ctx context.Context, rm *room.Room, cmd WSCommand) (room.Reply, error) {
	switch cmd.Type {
	case "move":
		d, ok := chizuquiz.ParseDirection(cmd.Direction)
		if !ok {
			return room.Reply{}, fmt.Errorf("%w: unknown direction", errBadCommand)
		}
		if cmd.Step < 0 || math.IsNaN(cmd.Step) || math.IsInf(cmd.Step, 0) {
			return room.Reply{}, fmt.Errorf("%w: invalid step", errBadCommand)
		}
		return rm.Move(ctx, d, cmd.Step)
	case "place":
		if cmd.Lat == nil || cmd.Lng == nil {
			return room.Reply{}, fmt.Errorf("%w: lat and lng are required", errBadCommand)
		}
		return rm.Place(ctx, geo.Point{Lat: *cmd.Lat, Lng: *cmd.Lng})
	case "confirm":
		return rm.Confirm(ctx)
	case "restart":
		return rm.Restart(ctx)
	case "state":
		view, err := rm.Observe(ctx)
		return room.Reply{View: view}, err
	}
	return room.Reply{}, fmt.Errorf("%w: unknown type %q", errBadCommand, cmd.Type)
}
