package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bitpal/wallet-service/internal/api/problem"
	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	authContextKey   contextKey = "auth_context"
	apiKeyContextKey contextKey = "api_key_id"
	traceContextKey  contextKey = "trace_id"
)

var jwtSecret []byte
var jwtIssuer string
var jwtAudience string

type authClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// APIKeyAuthenticator resolves a raw API key into its capability set.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, domain.AuthContext, error)
}

func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtSecret = []byte(secret)
}

func SetJWTValidation(issuer, audience string) {
	jwtIssuer = strings.TrimSpace(issuer)
	jwtAudience = strings.TrimSpace(audience)
}

func JWTSecret() []byte {
	clone := make([]byte, len(jwtSecret))
	copy(clone, jwtSecret)
	return clone
}

func JWTIssuer() string {
	return jwtIssuer
}

func JWTAudience() string {
	return jwtAudience
}

// AuthMiddleware validates the JWT bearer token and injects a full-capability
// auth context. Key management and account routes require a session token;
// API keys cannot mint or revoke other keys.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := authenticateBearer(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WalletAuthMiddleware accepts either a JWT bearer token or an X-API-Key
// header. Bearer tokens carry every capability; API keys are limited to the
// capability subset granted at creation.
func WalletAuthMiddleware(keys APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
				key, auth, err := keys.Authenticate(r.Context(), rawKey)
				if err != nil {
					writeAPIKeyError(w, r, err)
					return
				}
				ctx := context.WithValue(r.Context(), authContextKey, auth)
				ctx = context.WithValue(ctx, apiKeyContextKey, key.ID.String())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			auth, ok := authenticateBearer(w, r)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateBearer(w http.ResponseWriter, r *http.Request) (domain.AuthContext, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/authorization-header-required"), http.StatusText(http.StatusUnauthorized), "Authorization header or X-API-Key required")
		return domain.AuthContext{}, false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-format"), http.StatusText(http.StatusUnauthorized), "Invalid token format")
		return domain.AuthContext{}, false
	}
	if len(jwtSecret) == 0 {
		problem.Write(w, r, http.StatusInternalServerError, problem.Type("auth/misconfigured"), http.StatusText(http.StatusInternalServerError), "auth is not configured")
		return domain.AuthContext{}, false
	}

	claims := &authClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}
	if jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(jwtAudience))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token"), http.StatusText(http.StatusUnauthorized), "Invalid token")
		return domain.AuthContext{}, false
	}
	if claims.UserID == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-claims"), http.StatusText(http.StatusUnauthorized), "Invalid token claims")
		return domain.AuthContext{}, false
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-claims"), http.StatusText(http.StatusUnauthorized), "Invalid token claims")
		return domain.AuthContext{}, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-claims"), http.StatusText(http.StatusUnauthorized), "Invalid token claims")
		return domain.AuthContext{}, false
	}

	return domain.AuthContext{UserID: userID, Capabilities: domain.AllCapabilities}, true
}

func writeAPIKeyError(w http.ResponseWriter, r *http.Request, err error) {
	problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-api-key"), http.StatusText(http.StatusUnauthorized), "Invalid or expired API key")
}

// AuthContextFromContext returns the authenticated caller's identity and
// capability set.
func AuthContextFromContext(ctx context.Context) (domain.AuthContext, bool) {
	if ctx == nil {
		return domain.AuthContext{}, false
	}
	if v, ok := ctx.Value(authContextKey).(domain.AuthContext); ok {
		return v, true
	}
	return domain.AuthContext{}, false
}

// APIKeyIDFromContext returns the id of the API key used for the request, if any.
func APIKeyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(apiKeyContextKey).(string); ok {
		return v
	}
	return ""
}
