package server

import (
	"net/http"
	"strings"

	"github.com/wastetrace/wastetrace/internal/model"
)

// HandleCreatePlant handles POST /v1/plants.
func (h *Handlers) HandleCreatePlant(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.CreatePlantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "name is required")
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "coordinates out of range")
		return
	}
	capacity := model.DefaultPlantCapacityTons
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "capacity_tons must be positive")
			return
		}
		capacity = *req.Capacity
	}

	plant, err := h.db.CreatePlant(r.Context(), model.Plant{
		OwnerID:      claims.UserID,
		Name:         req.Name,
		Address:      req.Address,
		Lat:          req.Lat,
		Lng:          req.Lng,
		CapacityTons: capacity,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, plant)
}

// HandleMyPlants handles GET /v1/plants/my.
func (h *Handlers) HandleMyPlants(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	plants, err := h.db.ListPlantsByOwner(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plants)
}

// HandleListPlants handles GET /v1/plants. Generators browse this list to
// pick a destination plant for a pickup.
func (h *Handlers) HandleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := h.db.ListPlants(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plants)
}

// HandleUpdatePlant handles PUT /v1/plants/{id}.
func (h *Handlers) HandleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req model.UpdatePlantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "capacity_tons must be positive")
		return
	}

	plant, err := h.db.UpdatePlant(r.Context(), id, claims.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plant)
}
