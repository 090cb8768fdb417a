package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bitpal/wallet-service/internal/api/middleware"
	"github.com/bitpal/wallet-service/internal/api/problem"
	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// envelope is the success shape every JSON endpoint returns.
type envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a success envelope.
func Respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Status: true, Message: message, Data: data})
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondServiceError translates service and repository errors into HTTP responses.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "api key lacks the required permission")
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, domain.ErrBadAmount):
		RespondError(w, r, http.StatusBadRequest, "wallet/invalid-amount", "amount must be positive with at most two decimal places")
	case errors.Is(err, models.ErrInsufficientFunds):
		RespondError(w, r, http.StatusBadRequest, "wallet/insufficient-funds", "insufficient funds")
	case errors.Is(err, models.ErrSelfTransfer):
		RespondError(w, r, http.StatusBadRequest, "wallet/self-transfer", "cannot transfer to your own wallet")
	case errors.Is(err, models.ErrRecipientNotFound):
		RespondError(w, r, http.StatusNotFound, "wallet/recipient-not-found", "recipient wallet not found")
	case errors.Is(err, models.ErrWalletNotFound):
		RespondError(w, r, http.StatusNotFound, "wallet/not-found", "wallet not found")
	case errors.Is(err, models.ErrTransactionNotFound):
		RespondError(w, r, http.StatusNotFound, "transaction/not-found", "transaction not found")
	case errors.Is(err, models.ErrUserNotFound):
		RespondError(w, r, http.StatusNotFound, "user/not-found", "user not found")
	case errors.Is(err, models.ErrAPIKeyNotFound):
		RespondError(w, r, http.StatusNotFound, "keys/not-found", "api key not found")
	case errors.Is(err, models.ErrAPIKeyLimitReached):
		RespondError(w, r, http.StatusConflict, "keys/limit-reached", "maximum number of active api keys reached")
	case errors.Is(err, service.ErrInvalidExpiry), errors.Is(err, service.ErrInvalidPermission):
		RespondError(w, r, http.StatusBadRequest, "keys/invalid-request", err.Error())
	case errors.Is(err, models.ErrInvalidStateTransition):
		RespondError(w, r, http.StatusConflict, "transaction/invalid-state", "transaction is already settled")
	case errors.Is(err, service.ErrProvider):
		RespondError(w, r, http.StatusBadGateway, "provider/unavailable", "payment provider request failed")
	default:
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

// parseAmountField accepts the amount as either a JSON string or a bare
// number and validates scale and sign.
func parseAmountField(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		return decimal.Decimal{}, domain.ErrBadAmount
	}
	return domain.ParseAmount(s)
}

func requestAuth(w http.ResponseWriter, r *http.Request) (domain.AuthContext, bool) {
	auth, ok := middleware.AuthContextFromContext(r.Context())
	if !ok {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", "missing auth context")
		return domain.AuthContext{}, false
	}
	return auth, true
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
