package server

import (
	"net/http"

	"github.com/wastetrace/wastetrace/internal/model"
)

// HandleBalance handles GET /v1/wallet/balance.
func (h *Handlers) HandleBalance(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	balance, err := h.walletSvc.Balance(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, balance)
}

// HandleTransactions handles GET /v1/wallet/transactions.
func (h *Handlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	limit := queryInt(r, "limit", 50)
	txs, err := h.walletSvc.Transactions(r.Context(), claims.UserID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, txs)
}

// HandleTransfer handles POST /v1/wallet/transfer.
func (h *Handlers) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	balance, err := h.walletSvc.Transfer(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.WalletMutationResponse{NewBalance: balance})
}

// HandleSell handles POST /v1/wallet/sell.
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.SellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	resp, err := h.walletSvc.Sell(r.Context(), claims.UserID, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}
