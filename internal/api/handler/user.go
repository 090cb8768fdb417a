package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bitpal/wallet-service/internal/service"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Ensure handles POST /v1/users: find-or-create the user and its wallet.
func (h *UserHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoogleID string `json:"google_id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.GoogleID) == "" || strings.TrimSpace(req.Email) == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "google_id and email are required")
		return
	}

	user, wallet, err := h.svc.EnsureUser(r.Context(), req.GoogleID, req.Email, req.Name)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusCreated, "user ready", map[string]interface{}{
		"user":   user,
		"wallet": wallet,
	})
}

// Delete handles DELETE /v1/users/me: removes the caller's transactions,
// api keys, wallet and account in one database transaction.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(r.Context(), auth.UserID); err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "account deleted", nil)
}
