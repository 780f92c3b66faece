package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophgate/internal/server/handlers"
	"github.com/iudanet/gophgate/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func testJWTConfig() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:         []byte("test-secret-key-test-secret-key-"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

// decodeDetail читает {"detail"} из ответа
func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Detail
}

func TestAuthMiddleware_Success(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := handlers.GenerateAccessToken(cfg, "user123", time.Now())
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.UserIDFromContext(r.Context())
		require.True(t, ok, "user_id should be in context")
		assert.Equal(t, "user123", userID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	expired, _, err := handlers.GenerateAccessToken(cfg, "user123", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	otherKey, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:         []byte("another-secret-another-secret-!!"),
		AccessTokenTTL: time.Hour,
	}, "user123", time.Now())
	require.NoError(t, err)

	// Подпись верная, но алгоритм не HS256
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user123",
		Issuer:    "gophgate",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(cfg.Secret)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantDetail string
	}{
		{name: "missing header", header: "", wantDetail: "not authenticated"},
		{name: "no bearer prefix", header: "token123", wantDetail: "invalid token format"},
		{name: "wrong scheme", header: "Basic token123", wantDetail: "invalid token format"},
		{name: "only bearer", header: "Bearer ", wantDetail: "invalid token format"},
		{name: "malformed token", header: "Bearer invalid.token.here", wantDetail: "could not validate credentials"},
		{name: "expired token", header: "Bearer " + expired, wantDetail: "could not validate credentials"},
		{name: "foreign secret", header: "Bearer " + otherKey, wantDetail: "could not validate credentials"},
		{name: "unexpected algorithm", header: "Bearer " + hs512, wantDetail: "could not validate credentials"},
	}

	handler := AuthMiddleware(setupTestLogger(), cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantDetail, decodeDetail(t, w))
		})
	}
}
