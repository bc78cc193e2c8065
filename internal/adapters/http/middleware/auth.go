package middleware

import (
	"context"
	"net/http"
	"strings"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/auth"
	"retail-service/internal/service/identity"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

// ContextKey type for context values
type ContextKey string

const (
	// ContextKeyPrincipal stores the resolved principal.
	ContextKeyPrincipal ContextKey = "principal"
	// ContextKeyTenant stores the resolved session tenant row.
	ContextKeyTenant ContextKey = "tenant"
)

// AuthMiddleware resolves bearer session tokens into principals. The role
// type is recomputed from the current membership on every request; nothing
// derived lives in the token.
type AuthMiddleware struct {
	jwt      *auth.JWTService
	identity *identity.Service
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(jwt *auth.JWTService, identityService *identity.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, identity: identityService}
}

// Authenticate validates the session token and loads the principal.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			response.Error(w, r, errors.ErrUnauthenticated.WithDetails("reason", "missing or invalid authorization header"))
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			response.Error(w, r, errors.ErrUnauthenticated.WithDetails("reason", "invalid or expired token"))
			return
		}

		principal, sessionTenant, err := m.identity.Resolve(r.Context(), claims.UserID, claims.TenantID)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
		ctx = context.WithValue(ctx, ContextKeyTenant, sessionTenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// PrincipalFromContext returns the resolved principal of the request.
func PrincipalFromContext(ctx context.Context) (membership.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(membership.Principal)
	return p, ok
}

// TenantFromContext returns the session tenant row of the request.
func TenantFromContext(ctx context.Context) (tenant.Tenant, bool) {
	t, ok := ctx.Value(ContextKeyTenant).(tenant.Tenant)
	return t, ok
}
