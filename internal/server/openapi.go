package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi31"

	"github.com/playperu/chizuquiz/internal/quiz"
	"github.com/playperu/chizuquiz/internal/room"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is one entry of the /healthz response, keyed by dependency.
type HealthStatus struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi31.Spec {
	r := openapi31.NewReflector()
	r.Spec.Info.Title = "Chizuquiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Japan map quiz.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a game room and asks the first question.")
	createGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(createGame)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Get game state")
	getGame.SetDescription("Returns the session view. The answer location only appears after a guess is confirmed.")
	getGame.AddReqStructure(gamePath{})
	getGame.AddRespStructure(quiz.View{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// DELETE /api/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Stops the room and cancels any pending transition.")
	deleteGame.AddReqStructure(gamePath{})
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGame)

	// POST /api/games/{gameID}/move
	move, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/move")
	move.SetSummary("Move pointer")
	move.SetDescription("Moves the pointer one step in a direction. Ignored unless a question is open.")
	move.AddReqStructure(moveInput{})
	move.AddRespStructure(InputResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	move.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	move.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(move)

	// PUT /api/games/{gameID}/pointer
	pointer, _ := r.NewOperationContext(http.MethodPut, "/api/games/{gameID}/pointer")
	pointer.SetSummary("Place pointer")
	pointer.SetDescription("Places the pointer at a coordinate, clamped to the playable area.")
	pointer.AddReqStructure(pointerInput{})
	pointer.AddRespStructure(InputResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	pointer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	pointer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(pointer)

	// POST /api/games/{gameID}/confirm
	confirm, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/confirm")
	confirm.SetSummary("Confirm guess")
	confirm.SetDescription("Evaluates the pointer against the current region. The next question follows after the settle delay.")
	confirm.AddReqStructure(gamePath{})
	confirm.AddRespStructure(InputResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	confirm.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(confirm)

	// POST /api/games/{gameID}/restart
	restart, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/restart")
	restart.SetSummary("Restart session")
	restart.SetDescription("Discards the session, including any pending transition, and starts over.")
	restart.AddReqStructure(gamePath{})
	restart.AddRespStructure(InputResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	restart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(restart)

	// GET /api/games/{gameID}/events
	events, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	events.SetSummary("SSE event stream")
	events.SetDescription("Server-Sent Events: one \"state\" event, then a \"render\" event per display command.")
	events.AddReqStructure(gamePath{})
	events.AddRespStructure(room.Event{}, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(events)

	// GET /api/games/{gameID}/ws
	ws, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/ws")
	ws.SetSummary("Game WebSocket")
	ws.SetDescription("Upgrades to a WebSocket. Clients send WSCommand messages; the server replies and pushes WSMessage messages.")
	ws.AddReqStructure(gamePath{})
	ws.AddRespStructure(WSMessage{}, openapi.WithHTTPStatus(http.StatusSwitchingProtocols))
	_ = r.AddOperation(ws)

	// GET /api/results
	results, _ := r.NewOperationContext(http.MethodGet, "/api/results")
	results.SetSummary("Recent results")
	results.SetDescription("Returns the most recently finished sessions, newest first.")
	results.AddReqStructure(resultsQuery{})
	results.AddRespStructure([]ResultItem{}, openapi.WithHTTPStatus(http.StatusOK))
	results.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(results)

	// GET /api/admin/regions
	listRegions, _ := r.NewOperationContext(http.MethodGet, "/api/admin/regions")
	listRegions.SetSummary("List regions")
	listRegions.SetDescription("Returns the region catalog. Requires basic auth.")
	listRegions.AddRespStructure([]RegionItem{}, openapi.WithHTTPStatus(http.StatusOK))
	listRegions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listRegions)

	// POST /api/admin/regions
	createRegion, _ := r.NewOperationContext(http.MethodPost, "/api/admin/regions")
	createRegion.SetSummary("Create region")
	createRegion.SetDescription("Adds a region to the catalog. New games pick it up immediately. Requires basic auth.")
	createRegion.AddReqStructure(RegionRequest{})
	createRegion.AddRespStructure(RegionItem{}, openapi.WithHTTPStatus(http.StatusCreated))
	createRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	createRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createRegion)

	// GET /api/admin/regions/{id}
	getRegion, _ := r.NewOperationContext(http.MethodGet, "/api/admin/regions/{id}")
	getRegion.SetSummary("Get region")
	getRegion.SetDescription("Returns one catalog region. Requires basic auth.")
	getRegion.AddReqStructure(regionPath{})
	getRegion.AddRespStructure(RegionItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getRegion)

	// PUT /api/admin/regions/{id}
	updateRegion, _ := r.NewOperationContext(http.MethodPut, "/api/admin/regions/{id}")
	updateRegion.SetSummary("Update region")
	updateRegion.SetDescription("Replaces a catalog region. Running games keep their copy. Requires basic auth.")
	updateRegion.AddReqStructure(regionUpdateInput{})
	updateRegion.AddRespStructure(RegionItem{}, openapi.WithHTTPStatus(http.StatusOK))
	updateRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	updateRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	updateRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(updateRegion)

	// DELETE /api/admin/regions/{id}
	deleteRegion, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/regions/{id}")
	deleteRegion.SetSummary("Delete region")
	deleteRegion.SetDescription("Removes a catalog region. The last region cannot be deleted. Requires basic auth.")
	deleteRegion.AddReqStructure(regionPath{})
	deleteRegion.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteRegion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteRegion)

	return r.Spec
}

// Request shapes that only exist to describe path and query parameters.
type gamePath struct {
	GameID string `path:"gameID"`
}

type moveInput struct {
	gamePath
	MoveRequest
}

type pointerInput struct {
	gamePath
	PointerRequest
}

type regionPath struct {
	ID string `path:"id"`
}

type regionUpdateInput struct {
	regionPath
	RegionRequest
}

type resultsQuery struct {
	Limit int `query:"limit" minimum:"1" maximum:"200" default:"20"`
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
