// Package server собирает HTTP API сервера авторизации: маршруты /api/v1 и middleware.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/gophgate/internal/server/handlers"
	"github.com/iudanet/gophgate/internal/server/middleware"
	"github.com/iudanet/gophgate/internal/server/oauth"
	"github.com/iudanet/gophgate/internal/server/sms"
	"github.com/iudanet/gophgate/internal/server/storage"
	"github.com/iudanet/gophgate/pkg/api"
)

// APIPrefix префикс всех маршрутов
const APIPrefix = "/api/v1"

const healthPath = APIPrefix + "/health"

// Deps зависимости сервера
type Deps struct {
	Logger        *slog.Logger
	Users         storage.UserStorage
	Codes         handlers.CodeStore
	Sender        sms.Sender
	Provider      oauth.Provider
	Checks        map[string]handlers.Pinger
	Version       string
	JWT           handlers.JWTConfig
	CodeTTL       time.Duration
	RateWindow    time.Duration
	RateLimit     int // запросов с одного IP за окно, все маршруты
	AuthRateLimit int // запросов с одного IP за окно, /auth/*
}

// Server HTTP API сервера авторизации
type Server struct {
	router   *mux.Router
	limiters []*middleware.RateLimiter
}

// New строит маршрутизатор. Close останавливает фоновые горутины limiter-ов.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	globalLimiter := middleware.NewRateLimiter(d.RateLimit, d.RateWindow, logger)
	authLimiter := middleware.NewRateLimiter(d.AuthRateLimit, d.RateWindow, logger)

	authHandler := handlers.NewAuthHandler(logger, d.Users, d.Codes, d.Sender, d.Provider, d.JWT, d.CodeTTL)
	healthHandler := handlers.NewHealthHandler(logger, d.Version, d.Checks)
	requireAuth := middleware.AuthMiddleware(logger, d.JWT)

	r := mux.NewRouter()
	r.NotFoundHandler = jsonError("not found", http.StatusNotFound)
	r.MethodNotAllowedHandler = jsonError("method not allowed", http.StatusMethodNotAllowed)

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(logger, healthPath))
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(globalLimiter.Middleware)

	v1 := r.PathPrefix(APIPrefix).Subrouter()
	v1.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	auth := v1.PathPrefix("/auth").Subrouter()
	auth.Use(authLimiter.Middleware)

	// Публичные
	auth.HandleFunc("/sms/send", authHandler.SendSMS).Methods(http.MethodPost)
	auth.HandleFunc("/phone/login", authHandler.PhoneLogin).Methods(http.MethodPost)
	auth.HandleFunc("/phone/register", authHandler.PhoneRegister).Methods(http.MethodPost)
	auth.HandleFunc("/oauth/login", authHandler.OAuthLogin).Methods(http.MethodPost)

	// Требуют bearer токен
	auth.Handle("/bind-phone", requireAuth(http.HandlerFunc(authHandler.BindPhone))).Methods(http.MethodPost)
	auth.Handle("/me", requireAuth(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)

	// Legacy вход по паролю живет вне /auth, но под тем же лимитом
	v1.Handle("/login/access-token", authLimiter.Middleware(http.HandlerFunc(authHandler.CredentialLogin))).
		Methods(http.MethodPost)

	return &Server{
		router:   r,
		limiters: []*middleware.RateLimiter{globalLimiter, authLimiter},
	}
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close останавливает limiter-ы
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

func jsonError(detail string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Detail: detail})
	})
}
