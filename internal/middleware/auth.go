package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dan9191/bank-ledger/internal/auth"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware validates the bearer token and requires a live session for
// its subject. The resolved user ID is placed on the request context; this is
// the only place the implicit "current user" exists, everything below the
// handlers takes explicit user IDs.
func AuthMiddleware(cfg *config.Config, sessions *auth.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, prefix), claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, ok := sessions.CurrentUserID(claims.ID)
			if !ok || userID != claims.Subject {
				http.Error(w, "session expired, please log in again", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user ID stored by AuthMiddleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
