package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophgate/pkg/api"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// Pinger проверка доступности зависимости (БД, Redis)
type Pinger func(ctx context.Context) error

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	checks  map[string]Pinger
	version string
	timeout time.Duration
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		checks:  checks,
		version: version,
		timeout: 2 * time.Second,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:  statusOK,
		Version: h.version,
	}
	code := http.StatusOK

	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed",
				slog.String("dependency", name),
				slog.Any("error", err))
			resp.Status = statusDegraded
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(h.logger, w, resp, code)
}
