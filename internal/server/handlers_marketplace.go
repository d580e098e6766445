package server

import (
	"net/http"
	"strings"

	"github.com/wastetrace/wastetrace/internal/model"
)

// HandleListItems handles GET /v1/marketplace. An optional category query
// parameter filters the listing.
func (h *Handlers) HandleListItems(w http.ResponseWriter, r *http.Request) {
	category := model.ItemCategory(r.URL.Query().Get("category"))
	if category != "" && !model.ValidItemCategory(category) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown item category")
		return
	}

	items, err := h.db.ListItems(r.Context(), category)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandleCreateItem handles POST /v1/marketplace.
func (h *Handlers) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.CreateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "name is required")
		return
	}
	if !model.ValidItemCategory(req.Category) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown item category")
		return
	}
	if req.Price <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "price_in_credits must be positive")
		return
	}
	if req.Stock < 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "stock must not be negative")
		return
	}

	item, err := h.db.CreateItem(r.Context(), model.MarketplaceItem{
		SellerID:    claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}

// HandleRedeemItem handles POST /v1/marketplace/{id}/redeem.
func (h *Handlers) HandleRedeemItem(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	item, balance, err := h.walletSvc.Redeem(r.Context(), claims.UserID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, struct {
		Item       model.MarketplaceItem `json:"item"`
		NewBalance float64               `json:"new_balance"`
	}{Item: item, NewBalance: balance})
}
