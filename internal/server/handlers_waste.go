package server

import (
	"net/http"

	"github.com/wastetrace/wastetrace/internal/model"
)

// HandleCreateIntake handles POST /v1/waste.
func (h *Handlers) HandleCreateIntake(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.CreateIntakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	in, err := h.intakeSvc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, in)
}

// HandleMyIntakes handles GET /v1/waste/my.
func (h *Handlers) HandleMyIntakes(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	intakes, err := h.intakeSvc.ListForGenerator(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, intakes)
}

// HandleIncomingIntakes handles GET /v1/waste/incoming.
func (h *Handlers) HandleIncomingIntakes(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	intakes, err := h.intakeSvc.ListForRecycler(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, intakes)
}

// HandleGetIntake handles GET /v1/waste/{id}.
func (h *Handlers) HandleGetIntake(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	in, err := h.intakeSvc.Get(r.Context(), id, claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, in)
}

// HandleAdvanceStatus handles PATCH /v1/waste/{id}/status.
func (h *Handlers) HandleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req model.AdvanceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	in, err := h.intakeSvc.AdvanceStatus(r.Context(), id, claims.UserID, req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, in)
}

// HandleSubmitQC handles POST /v1/waste/{id}/qc.
func (h *Handlers) HandleSubmitQC(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req model.SubmitQCRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	in, result, err := h.intakeSvc.SubmitQC(r.Context(), id, claims.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.QCResponse{
		Intake:       in,
		CreditResult: result,
	})
}

// HandleGeneratorStats handles GET /v1/waste/stats.
func (h *Handlers) HandleGeneratorStats(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	st, err := h.statsSvc.Generator(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

// HandleRecyclerStats handles GET /v1/waste/recycler-stats.
func (h *Handlers) HandleRecyclerStats(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	st, err := h.statsSvc.Recycler(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}
