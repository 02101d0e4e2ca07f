package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/chizuquiz/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Chizuquiz API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	r.Post("/api/games", handleCreateGame(logger, deps.Rooms))

	// Player routes; {gameID} resolved by roomMiddleware.
	r.Route("/api/games/{gameID}", func(r chi.Router) {
		r.Use(roomMiddleware(deps.Rooms))
		r.Get("/", handleGameState(logger))
		r.Delete("/", handleDeleteGame(deps.Rooms))
		r.Post("/move", handleMove(logger))
		r.Put("/pointer", handleSetPointer(logger))
		r.Post("/confirm", handleConfirm(logger))
		r.Post("/restart", handleRestart(logger))
		r.Get("/events", handleEvents(logger, deps.Broker))
		r.Get("/ws", handleWS(logger, deps.Broker))
	})

	r.Get("/api/results", handleListResults(logger, deps.Store))

	r.Route("/api/admin/regions", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.AdminUser, deps.AdminPasswordHash))
		r.Get("/", handleAdminListRegions(logger, deps.Store))
		r.Post("/", handleAdminCreateRegion(logger, deps.Store, deps.Catalog, deps.Bounds))
		r.Get("/{id}", handleAdminGetRegion(logger, deps.Store))
		r.Put("/{id}", handleAdminUpdateRegion(logger, deps.Store, deps.Catalog, deps.Bounds))
		r.Delete("/{id}", handleAdminDeleteRegion(logger, deps.Store, deps.Catalog))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
