package server

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
)

// RegionItem is the admin representation of a catalog region.
type RegionItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Hint        string  `json:"hint"`
	ToleranceKm float64 `json:"toleranceKm,omitempty"`
}

type RegionRequest struct {
	Name        string   `json:"name"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Hint        string   `json:"hint"`
	ToleranceKm float64  `json:"toleranceKm,omitempty"`
}

func toRegionItem(r chizuquiz.Region) RegionItem {
	return RegionItem{
		ID:          r.ID,
		Name:        r.Name,
		Lat:         r.Coords.Lat,
		Lng:         r.Coords.Lng,
		Hint:        r.Hint,
		ToleranceKm: r.ToleranceKm,
	}
}

// region validates the request against the playable bounds.
func (req RegionRequest) region(bounds geo.Bounds) (chizuquiz.Region, string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return chizuquiz.Region{}, "name is required"
	}
	if req.Lat == nil || req.Lng == nil {
		return chizuquiz.Region{}, "lat and lng are required"
	}
	p := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	if !p.Finite() || !bounds.Contains(p) {
		return chizuquiz.Region{}, "coordinates must lie inside the playable area"
	}
	if req.ToleranceKm < 0 || math.IsInf(req.ToleranceKm, 0) {
		return chizuquiz.Region{}, "toleranceKm must not be negative"
	}
	return chizuquiz.Region{
		Name:        name,
		Coords:      p,
		Hint:        strings.TrimSpace(req.Hint),
		ToleranceKm: req.ToleranceKm,
	}, ""
}

func handleAdminListRegions(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regions, err := store.ListRegions(r.Context())
		if err != nil {
			logger.Error("listing regions", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]RegionItem, 0, len(regions))
		for _, reg := range regions {
			items = append(items, toRegionItem(reg))
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleAdminGetRegion(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := store.GetRegion(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "region not found")
			return
		}
		if err != nil {
			logger.Error("getting region", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toRegionItem(reg))
	}
}

func handleAdminCreateRegion(logger *slog.Logger, store Store, catalog *Catalog, bounds geo.Bounds) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegionRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		reg, msg := req.region(bounds)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		reg, err := store.CreateRegion(r.Context(), reg)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "a region with this name already exists")
			return
		}
		if err != nil {
			logger.Error("creating region", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		reloadCatalog(r, logger, store, catalog)
		logger.Info("region created", "region_id", reg.ID, "name", reg.Name)
		writeJSON(w, http.StatusCreated, toRegionItem(reg))
	}
}

func handleAdminUpdateRegion(logger *slog.Logger, store Store, catalog *Catalog, bounds geo.Bounds) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegionRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		reg, msg := req.region(bounds)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		reg.ID = chi.URLParam(r, "id")

		reg, err := store.UpdateRegion(r.Context(), reg)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "region not found")
			return
		case errors.Is(err, ErrConflict):
			writeError(w, http.StatusConflict, "a region with this name already exists")
			return
		case err != nil:
			logger.Error("updating region", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		reloadCatalog(r, logger, store, catalog)
		writeJSON(w, http.StatusOK, toRegionItem(reg))
	}
}

func handleAdminDeleteRegion(logger *slog.Logger, store Store, catalog *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := store.DeleteRegion(r.Context(), id)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "region not found")
			return
		case errors.Is(err, ErrLastRegion):
			writeError(w, http.StatusConflict, "cannot delete the last region")
			return
		case err != nil:
			logger.Error("deleting region", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		reloadCatalog(r, logger, store, catalog)
		logger.Info("region deleted", "region_id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func reloadCatalog(r *http.Request, logger *slog.Logger, store Store, catalog *Catalog) {
	if err := catalog.Reload(r.Context(), store); err != nil {
		logger.Error("reloading region catalog", "error", err)
	}
}
