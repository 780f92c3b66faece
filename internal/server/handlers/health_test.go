package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/gophgate/pkg/api"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		checks     map[string]Pinger
		name       string
		wantStatus string
		wantCode   int
	}{
		{
			name:       "no dependencies",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all healthy",
			checks: map[string]Pinger{
				"sqlite": func(context.Context) error { return nil },
				"redis":  func(context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "redis down",
			checks: map[string]Pinger{
				"sqlite": func(context.Context) error { return nil },
				"redis":  func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(setupTestLogger(), "1.2.3", tt.checks)

			w := httptest.NewRecorder()
			handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			resp := decode[api.HealthResponse](t, w)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}
