package auth

import (
	"context"
	"net/http"

	"github.com/zexoverz/dominion-sub001/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс проверки операторских токенов
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.OperatorClaims, error)
}

// Тип для ключей в контексте (избегаем коллизий)
type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	scopesKey ctxKey = "user_scopes"
)

// NewMiddleware закрывает административный периметр RS256-токеном.
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
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

			// Прокидываем данные в контекст
			ctx := context.WithValue(r.Context(), scopesKey, claims.Scopes)
			ctx = context.WithValue(ctx, userIDKey, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID достает ID авторизованного оператора из контекста.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// Scopes достает права оператора из контекста.
func Scopes(ctx context.Context) map[string]bool {
	if s, ok := ctx.Value(scopesKey).(map[string]bool); ok {
		return s
	}
	return nil
}
