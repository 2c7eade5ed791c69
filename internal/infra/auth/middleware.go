package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — то, что нужно middleware от проверяющего
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

type ctxKey string

const claimsKey ctxKey = "claims"

// RequireScope пропускает запрос только с валидным токеном, содержащим scope.
func RequireScope(v TokenValidator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !claims.Scopes[scope] {
				logger.Warn("scope denied", zap.String("user_id", claims.UserID), zap.String("scope", scope))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom достает claims, положенные RequireScope
func ClaimsFrom(ctx context.Context) (*domain.CustomClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*domain.CustomClaims)
	return c, ok
}
