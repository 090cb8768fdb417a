package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bitpal/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// WalletHandler serves balance, transaction history and transfers for the
// authenticated caller's wallet.
type WalletHandler struct {
	wallets   *service.WalletService
	transfers *service.TransferService
	store     service.QueryStore
}

func NewWalletHandler(wallets *service.WalletService, transfers *service.TransferService, store service.QueryStore) *WalletHandler {
	return &WalletHandler{wallets: wallets, transfers: transfers, store: store}
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	wallet, err := h.wallets.Balance(r.Context(), auth, auth.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "wallet balance", map[string]interface{}{
		"wallet_number": wallet.WalletNumber,
		"balance":       wallet.Balance,
	})
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	txs, err := h.wallets.Transactions(r.Context(), auth, auth.UserID, limit, offset)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "transactions", map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (h *WalletHandler) TransactionByReference(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	reference := chi.URLParam(r, "reference")
	tx, err := h.wallets.TransactionByReference(r.Context(), auth, auth.UserID, reference)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "transaction", tx)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	var req struct {
		RecipientWalletNumber string          `json:"recipient_wallet_number"`
		Amount                json.RawMessage `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.RecipientWalletNumber) == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "recipient_wallet_number is required")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	sender, err := h.store.Repo().GetWalletByUserID(r.Context(), auth.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	result, err := h.transfers.Transfer(r.Context(), auth, sender.ID, req.RecipientWalletNumber, amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusCreated, "transfer successful", result)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
