package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fitcoach/api-server-go/internal/audit"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/httputil"
	"github.com/fitcoach/api-server-go/internal/token"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// GetIdentity returns the authenticated email placed in the context by
// AuthGate, or "" when the request was not authenticated.
func GetIdentity(ctx context.Context) string {
	if identity, ok := ctx.Value(IdentityContextKey).(string); ok {
		return identity
	}
	return ""
}

// AuthGate validates the bearer token on protected routes and exposes the
// recovered identity to downstream handlers.
type AuthGate struct {
	issuer *token.Issuer
}

func NewAuthGate(issuer *token.Issuer) *AuthGate {
	return &AuthGate{issuer: issuer}
}

func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			httputil.WriteError(w, apperrors.TokenMissing())
			return
		}

		identity, err := g.issuer.Validate(raw)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventTokenRejected})
			if errors.Is(err, token.ErrTokenExpired) {
				httputil.WriteError(w, apperrors.TokenExpired())
				return
			}
			httputil.WriteError(w, apperrors.TokenInvalid())
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
