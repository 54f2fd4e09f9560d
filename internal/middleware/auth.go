package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/handler/dto"
)

type contextKey string

const (
	// ContextKeyPrincipal is the key for storing the principal in request context.
	ContextKeyPrincipal contextKey = "principal"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// AuthMiddleware handles Bearer token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate validates the Bearer token and adds the principal to the request context.
// Websocket clients that cannot set headers may pass the token as ?access_token=.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			respondUnauthorized(w, err.Error())
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			respondUnauthorized(w, "invalid token")
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("missing token")
	}
	return token, nil
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tasktrail"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(dto.NewErrorResponse("INVALID_TOKEN", message))
}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// GetPrincipalFromContext retrieves the authenticated principal from request context.
func GetPrincipalFromContext(ctx context.Context) (domain.Principal, error) {
	p, ok := ctx.Value(ContextKeyPrincipal).(domain.Principal)
	if !ok || p.UserID == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}
