package handler

import (
	"encoding/json"
	"net/http"

	"github.com/bitpal/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// KeyHandler manages API keys. These routes require a session token; an API
// key cannot manage keys.
type KeyHandler struct {
	svc *service.APIKeyService
}

func NewKeyHandler(svc *service.APIKeyService) *KeyHandler {
	return &KeyHandler{svc: svc}
}

// Create handles POST /v1/keys. The full key is returned exactly once.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
		Expiry      string   `json:"expiry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	key, rawKey, err := h.svc.Create(r.Context(), auth.UserID, req.Name, req.Permissions, req.Expiry)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusCreated, "api key created", map[string]interface{}{
		"key":     rawKey,
		"details": key,
	})
}

func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	keys, err := h.svc.List(r.Context(), auth.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "api keys", map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	auth, ok := requestAuth(w, r)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid key id")
		return
	}

	if err := h.svc.Revoke(r.Context(), auth.UserID, keyID); err != nil {
		RespondServiceError(w, r, err)
		return
	}

	Respond(w, http.StatusOK, "api key revoked", nil)
}
