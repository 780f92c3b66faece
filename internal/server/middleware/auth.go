package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/gophgate/internal/server/handlers"
	"github.com/iudanet/gophgate/pkg/api"
)

// AuthMiddleware проверяет bearer JWT и кладет ID пользователя в контекст.
// Любая ошибка дает 401, что клиент трактует как недействительную сессию.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Missing Authorization header", "path", r.URL.Path)
				writeError(w, "not authenticated", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				writeError(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			userID, err := handlers.ValidateAccessToken(jwtConfig, strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(r.Context(), "Invalid access token", "error", err)
				writeError(w, "could not validate credentials", http.StatusUnauthorized)
				return
			}

			logger.DebugContext(r.Context(), "User authenticated", "user_id", userID)

			next.ServeHTTP(w, r.WithContext(handlers.WithUserID(r.Context(), userID)))
		})
	}
}

// writeError отвечает в формате {"detail": "..."}
func writeError(w http.ResponseWriter, detail string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Detail: detail})
}
