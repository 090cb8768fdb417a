package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bitpal/wallet-service/internal/api/middleware"
	"github.com/bitpal/wallet-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler issues session tokens. Login is a development stand-in for the
// Google OAuth flow: it accepts the identity fields the OAuth callback would
// provide and ensures the user and wallet exist.
type AuthHandler struct {
	users *service.UserService
}

func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
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

	user, wallet, err := h.users.EnsureUser(r.Context(), req.GoogleID, req.Email, req.Name)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	}
	if iss := middleware.JWTIssuer(); iss != "" {
		claims.Issuer = iss
	}
	if aud := middleware.JWTAudience(); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		jwt.RegisteredClaims
	}{
		UserID:           user.ID.String(),
		Email:            user.Email,
		RegisteredClaims: claims,
	})

	tokenString, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	Respond(w, http.StatusOK, "login successful", map[string]interface{}{
		"token":         tokenString,
		"user_id":       user.ID,
		"wallet_number": wallet.WalletNumber,
	})
}
