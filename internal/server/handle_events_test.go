package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/room"
)

// readSSE returns the next event name and data payload.
func readSSE(t *testing.T, br *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	id := env.createGame(t).ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/games/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	br := bufio.NewReader(resp.Body)
	event, data := readSSE(t, br)
	if event != "state" {
		t.Fatalf("first event = %q, want state", event)
	}
	if !strings.Contains(data, `"status":"playing"`) {
		t.Errorf("state payload missing status: %s", data)
	}

	w := env.do(t, http.MethodPost, "/api/games/"+id+"/move", MoveRequest{Direction: "right"})
	if w.Code != http.StatusOK {
		t.Fatalf("move: %d", w.Code)
	}

	event, data = readSSE(t, br)
	if event != "render" {
		t.Fatalf("event = %q, want render", event)
	}
	var e room.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	center := chizuquiz.JapanBounds.Center()
	if e.Type != room.EventPointer || e.Pointer == nil || e.Pointer.Lng != center.Lng+1 {
		t.Errorf("unexpected event: %s", data)
	}
}

func TestEventsStreamEndsWithGame(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	id := env.createGame(t).ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/games/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	readSSE(t, br)

	env.rooms.Remove(id)

	// The handler returns, so the body reaches EOF.
	for {
		if _, err := br.ReadString('\n'); err != nil {
			break
		}
	}
	if ctx.Err() != nil {
		t.Fatal("stream did not end after the game was removed")
	}
}

func TestGameWebSocket(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	game := env.createGame(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/games/" + game.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var msg WSMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if msg.Type != "state" || msg.State == nil || msg.State.Status != chizuquiz.StatusPlaying {
		t.Fatalf("unexpected initial message: %+v", msg)
	}

	// Reply and render event can arrive in either order.
	if err := wsjson.Write(ctx, conn, WSCommand{Type: "move", Direction: "up"}); err != nil {
		t.Fatalf("write move: %v", err)
	}
	var gotReply, gotRender bool
	for !gotReply || !gotRender {
		var msg WSMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case "state":
			if msg.Applied == nil || !*msg.Applied {
				t.Errorf("move reply not applied: %+v", msg)
			}
			gotReply = true
		case "render":
			var e room.Event
			json.Unmarshal(msg.Event, &e)
			if e.Type != room.EventPointer {
				t.Errorf("render type = %q, want pointer", e.Type)
			}
			gotRender = true
		default:
			t.Fatalf("unexpected message: %+v", msg)
		}
	}

	if err := wsjson.Write(ctx, conn, WSCommand{Type: "jump"}); err != nil {
		t.Fatalf("write bad command: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if msg.Type != "error" || !strings.Contains(msg.Error, "jump") {
		t.Errorf("expected error reply, got %+v", msg)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestGameWebSocketSnapshotBeforeRenders(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	game := env.createGame(t)

	// Keep the pointer moving so render events race every connect.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		dirs := []string{"up", "down"}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			env.do(t, http.MethodPost, "/api/games/"+game.ID+"/move", MoveRequest{Direction: dirs[i%2]})
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/games/" + game.ID + "/ws"
	for i := range 10 {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		var msg WSMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			conn.CloseNow()
			t.Fatalf("read %d: %v", i, err)
		}
		if msg.Type != "state" || msg.State == nil {
			t.Errorf("connection %d: first message = %q, want state", i, msg.Type)
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}
}
