package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/iudanet/gophgate/internal/server"
	"github.com/iudanet/gophgate/internal/server/config"
	"github.com/iudanet/gophgate/internal/server/handlers"
	"github.com/iudanet/gophgate/internal/server/oauth"
	"github.com/iudanet/gophgate/internal/server/sms"
	"github.com/iudanet/gophgate/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env необязателен
	_ = godotenv.Load()

	cfg, showVersion, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	users, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := users.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() {
		_ = rdb.Close()
	}()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}

	if !cfg.SMSEnabled() {
		logger.Warn("twilio is not configured, SMS codes are written to the log")
	}

	srv := server.New(server.Deps{
		Logger:   logger,
		Users:    users,
		Codes:    sms.NewCodeStore(rdb, cfg.CodeTTL, cfg.ResendInterval),
		Sender:   sms.NewSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, cfg.SMSCountryCode, logger),
		Provider: oauth.NewStaticProvider(cfg.OAuthAppID),
		Checks: map[string]handlers.Pinger{
			"sqlite": users.Ping,
			"redis":  func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Version: Version,
		JWT: handlers.JWTConfig{
			Secret:         []byte(cfg.JWTSecret),
			AccessTokenTTL: cfg.JWTTTL,
		},
		CodeTTL:       cfg.CodeTTL,
		RateWindow:    cfg.RateWindow,
		RateLimit:     cfg.RateLimit,
		AuthRateLimit: cfg.AuthRateLimit,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr),
			slog.String("version", Version))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion() {
	fmt.Printf("GophGate Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
