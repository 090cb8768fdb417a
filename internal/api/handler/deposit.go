package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bitpal/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type DepositHandler struct {
	svc *service.DepositService
}

func NewDepositHandler(svc *service.DepositService) *DepositHandler {
	return &DepositHandler{svc: svc}
}

// Initiate handles POST /v1/wallet/deposit: records a pending deposit and
// returns the provider's authorization URL.
func (h *DepositHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount json.RawMessage `json:"amount"`
		Email  string          `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "email is required")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	intent, err := h.svc.Initiate(r.Context(), auth, auth.UserID, amount, req.Email)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusCreated, "deposit initialized", intent)
}

// Status handles GET /v1/wallet/deposit/{reference}/status from local state.
func (h *DepositHandler) Status(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	reference := chi.URLParam(r, "reference")
	tx, err := h.svc.Status(r.Context(), auth, auth.UserID, reference)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "deposit status", map[string]interface{}{
		"reference": tx.Reference,
		"status":    tx.Status,
		"amount":    tx.Amount,
	})
}

// Verify handles GET /v1/wallet/deposit/{reference}/verify. It consults the
// provider read-only; the balance only ever moves through the webhook.
func (h *DepositHandler) Verify(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	reference := chi.URLParam(r, "reference")
	verification, err := h.svc.Verify(r.Context(), auth, auth.UserID, reference)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "deposit verification", verification)
}
