package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/quiz"
	"github.com/playperu/chizuquiz/internal/room"
)

type testEnv struct {
	router  http.Handler
	rooms   *room.Manager
	store   *SQLiteStore
	catalog *Catalog
}

// newTestEnv wires the full router over an in-memory store seeded with the
// default regions.
func newTestEnv(t *testing.T, settle time.Duration, adminHash string) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	store := setupStore(t)
	if err := SeedRegions(ctx, logger, store); err != nil {
		t.Fatalf("seed regions: %v", err)
	}
	catalog := NewCatalog(nil)
	if err := catalog.Reload(ctx, store); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	broker := NewBroker()
	rooms := room.NewManager(room.Options{
		Quiz: quiz.Config{
			Bounds:      chizuquiz.JapanBounds,
			ToleranceKm: 300,
			SettleDelay: settle,
		},
		Publish:  broker.Publish,
		OnFinish: ResultRecorder(logger, store),
		Logger:   logger,
	}, catalog.Regions)
	t.Cleanup(rooms.Close)

	router := NewRouter(logger, Deps{
		Rooms:             rooms,
		Broker:            broker,
		Store:             store,
		Catalog:           catalog,
		Bounds:            chizuquiz.JapanBounds,
		AdminUser:         "admin",
		AdminPasswordHash: adminHash,
	})

	return &testEnv{router: router, rooms: rooms, store: store, catalog: catalog}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createGame(t *testing.T) GameResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/games", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp GameResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func (e *testEnv) state(t *testing.T, id string) quiz.View {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/games/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var v quiz.View
	json.NewDecoder(w.Body).Decode(&v)
	return v
}

func decodeInput(t *testing.T, w *httptest.ResponseRecorder) InputResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp InputResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func regionByName(name string) chizuquiz.Region {
	for _, r := range chizuquiz.DefaultRegions() {
		if r.Name == name {
			return r
		}
	}
	return chizuquiz.Region{}
}

func TestCreateGame(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	resp := env.createGame(t)

	if resp.ID == "" {
		t.Fatal("expected a game ID")
	}
	st := resp.State
	if st.Status != chizuquiz.StatusPlaying {
		t.Errorf("status = %q, want playing", st.Status)
	}
	if st.Question == nil || regionByName(st.Question.Name).ID == "" {
		t.Fatalf("expected a known question, got %+v", st.Question)
	}
	if st.Total != 4 || st.Remaining != 3 || st.Answered != 0 || st.Score != 0 {
		t.Errorf("unexpected counters: %+v", st)
	}
	if st.Pointer != chizuquiz.JapanBounds.Center() {
		t.Errorf("pointer = %+v, want bounds center", st.Pointer)
	}
	if st.LastVerdict != nil {
		t.Error("answer leaked before confirmation")
	}
	if env.rooms.Len() != 1 {
		t.Errorf("expected 1 room, got %d", env.rooms.Len())
	}
}

func TestCreateGameNoRegions(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	// The admin API never empties the catalog, so clear the table directly.
	if _, err := env.store.db.ExecContext(context.Background(), `DELETE FROM regions`); err != nil {
		t.Fatalf("clear regions: %v", err)
	}
	if err := env.catalog.Reload(context.Background(), env.store); err != nil {
		t.Fatalf("reload: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/games", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUnknownGame(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/games/nope"},
		{http.MethodPost, "/api/games/nope/confirm"},
		{http.MethodPost, "/api/games/nope/restart"},
		{http.MethodDelete, "/api/games/nope"},
	} {
		w := env.do(t, tc.method, tc.path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestMovePointer(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	id := env.createGame(t).ID
	center := chizuquiz.JapanBounds.Center()

	resp := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+id+"/move", MoveRequest{Direction: "up"}))
	if !resp.Applied {
		t.Fatal("move up: expected applied")
	}
	if want := (geo.Point{Lat: center.Lat + 1, Lng: center.Lng}); resp.State.Pointer != want {
		t.Errorf("pointer = %+v, want %+v", resp.State.Pointer, want)
	}

	resp = decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+id+"/move", MoveRequest{Direction: "ArrowLeft", Step: 2.5}))
	if want := (geo.Point{Lat: center.Lat + 1, Lng: center.Lng - 2.5}); resp.State.Pointer != want {
		t.Errorf("pointer = %+v, want %+v", resp.State.Pointer, want)
	}

	// Far beyond the edge clamps.
	resp = decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+id+"/move", MoveRequest{Direction: "down", Step: 100}))
	if resp.State.Pointer.Lat != chizuquiz.JapanBounds.MinLat {
		t.Errorf("lat = %v, want clamped to %v", resp.State.Pointer.Lat, chizuquiz.JapanBounds.MinLat)
	}
}

func TestMoveBadRequest(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	id := env.createGame(t).ID

	tests := []struct {
		name string
		body any
	}{
		{"unknown direction", MoveRequest{Direction: "north"}},
		{"negative step", MoveRequest{Direction: "up", Step: -1}},
		{"unknown field", map[string]any{"direction": "up", "speed": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/games/"+id+"/move", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSetPointer(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	id := env.createGame(t).ID

	lat, lng := 35.7, 139.7
	resp := decodeInput(t, env.do(t, http.MethodPut, "/api/games/"+id+"/pointer", PointerRequest{Lat: &lat, Lng: &lng}))
	if !resp.Applied || resp.State.Pointer != (geo.Point{Lat: 35.7, Lng: 139.7}) {
		t.Errorf("unexpected response: %+v", resp)
	}

	lat, lng = 60, 100
	resp = decodeInput(t, env.do(t, http.MethodPut, "/api/games/"+id+"/pointer", PointerRequest{Lat: &lat, Lng: &lng}))
	if resp.State.Pointer != (geo.Point{Lat: 46, Lng: 122}) {
		t.Errorf("pointer = %+v, want clamped to (46, 122)", resp.State.Pointer)
	}

	w := env.do(t, http.MethodPut, "/api/games/"+id+"/pointer", map[string]float64{"lat": 35})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing lng: expected 400, got %d", w.Code)
	}
}

func TestConfirmTwiceIgnoresSecond(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	game := env.createGame(t)
	answer := regionByName(game.State.Question.Name).Coords

	lat, lng := answer.Lat, answer.Lng
	decodeInput(t, env.do(t, http.MethodPut, "/api/games/"+game.ID+"/pointer", PointerRequest{Lat: &lat, Lng: &lng}))

	first := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+game.ID+"/confirm", nil))
	if !first.Applied {
		t.Fatal("first confirm: expected applied")
	}
	if first.State.Status != chizuquiz.StatusEvaluating {
		t.Errorf("status = %q, want evaluating", first.State.Status)
	}
	if first.State.Score != 1 || first.State.Answered != 1 {
		t.Errorf("score/answered = %d/%d, want 1/1", first.State.Score, first.State.Answered)
	}
	if v := first.State.LastVerdict; v == nil || !v.Correct || v.Answer != answer {
		t.Errorf("unexpected verdict: %+v", v)
	}

	second := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+game.ID+"/confirm", nil))
	if second.Applied {
		t.Error("second confirm: expected ignored")
	}
	if second.State.Score != 1 || second.State.Answered != 1 {
		t.Errorf("second confirm changed counters: %+v", second.State)
	}

	// Movement is ignored while evaluating.
	move := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+game.ID+"/move", MoveRequest{Direction: "up"}))
	if move.Applied {
		t.Error("move while evaluating: expected ignored")
	}
}

func TestRestartResetsSession(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	game := env.createGame(t)

	decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+game.ID+"/confirm", nil))

	resp := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+game.ID+"/restart", nil))
	if !resp.Applied {
		t.Fatal("restart: expected applied")
	}
	st := resp.State
	if st.Status != chizuquiz.StatusPlaying || st.Answered != 0 || st.Score != 0 || st.Remaining != 3 {
		t.Errorf("unexpected state after restart: %+v", st)
	}
	if st.Generation <= game.State.Generation {
		t.Errorf("generation = %d, want > %d", st.Generation, game.State.Generation)
	}
}

func TestDeleteGame(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")
	id := env.createGame(t).ID

	w := env.do(t, http.MethodDelete, "/api/games/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/games/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("after delete: expected 404, got %d", w.Code)
	}
}

func TestFullSessionRecordsResult(t *testing.T) {
	env := newTestEnv(t, 5*time.Millisecond, "")
	id := env.createGame(t).ID

	for round := 1; round <= 4; round++ {
		st := env.state(t, id)
		if st.Question == nil {
			t.Fatalf("round %d: no question", round)
		}
		answer := regionByName(st.Question.Name).Coords
		lat, lng := answer.Lat, answer.Lng
		decodeInput(t, env.do(t, http.MethodPut, "/api/games/"+id+"/pointer", PointerRequest{Lat: &lat, Lng: &lng}))

		resp := decodeInput(t, env.do(t, http.MethodPost, "/api/games/"+id+"/confirm", nil))
		if !resp.Applied {
			t.Fatalf("round %d: confirm ignored", round)
		}

		waitFor(t, "next round", func() bool {
			st := env.state(t, id)
			return st.Status != chizuquiz.StatusEvaluating
		})
	}

	st := env.state(t, id)
	if st.Status != chizuquiz.StatusFinished {
		t.Fatalf("status = %q, want finished", st.Status)
	}
	if st.Score != 4 || st.Answered != 4 || st.Question != nil {
		t.Errorf("unexpected final state: %+v", st)
	}

	var results []ResultItem
	waitFor(t, "recorded result", func() bool {
		w := env.do(t, http.MethodGet, "/api/results", nil)
		results = nil
		json.NewDecoder(w.Body).Decode(&results)
		return len(results) == 1
	})
	if results[0].GameID != id || results[0].Score != 4 || results[0].Total != 4 {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestListResultsLimit(t *testing.T) {
	env := newTestEnv(t, time.Hour, "")

	w := env.do(t, http.MethodGet, "/api/results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := bytes.TrimSpace(w.Body.Bytes()); string(body) != "[]" {
		t.Errorf("empty history: got %s, want []", body)
	}

	for _, limit := range []string{"0", "abc", "201"} {
		w := env.do(t, http.MethodGet, "/api/results?limit="+limit, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, w.Code)
		}
	}
}
