package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	"github.com/agentforge-ai/agentforge/internal/pkg/crypto"
)

type contextKey string

const UserContextKey contextKey = "user"

type AuthMiddleware struct {
	jwtManager *crypto.JWTManager
}

func NewAuthMiddleware(jwtManager *crypto.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			dto.ErrorResponse(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			dto.ErrorResponse(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, crypto.ErrExpiredToken) {
				dto.ErrorResponse(w, http.StatusUnauthorized, "token expired")
				return
			}
			dto.ErrorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if meta := requestMetaFrom(r.Context()); meta != nil {
			meta.tenantID = claims.TenantID.String()
			meta.role = claims.Role
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireWriter gates mutating operations behind the writer or admin role.
func (m *AuthMiddleware) RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r.Context())
		if claims == nil {
			dto.ErrorResponse(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.CanWrite() {
			dto.ErrorResponse(w, http.StatusForbidden, "writer role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserFromContext(ctx context.Context) *crypto.Claims {
	claims, ok := ctx.Value(UserContextKey).(*crypto.Claims)
	if !ok {
		return nil
	}
	return claims
}
