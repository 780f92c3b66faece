package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iudanet/gophgate/internal/client/api"
	"github.com/iudanet/gophgate/internal/client/cli"
	"github.com/iudanet/gophgate/internal/client/guard"
	"github.com/iudanet/gophgate/internal/client/iocli"
	"github.com/iudanet/gophgate/internal/client/session"
	"github.com/iudanet/gophgate/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// .env необязателен
	_ = godotenv.Load()

	// Глобальные флаги, значения по умолчанию из окружения
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("GOPHGATE_SERVER", "http://localhost:8080/api/v1"), "Auth API base URL")
	dbPath := flag.String("db", envOr("GOPHGATE_DB", "gophgate-client.db"), "Path to local session database")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	resend := flag.Int("resend", envInt("GOPHGATE_RESEND", 60), "SMS resend cooldown in seconds")

	flag.Parse()

	stdio := iocli.NewStdio()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}
	command := args[0]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, stdio, *serverURL, *dbPath, *resend, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUnknownCommand) {
			cli.PrintUsage(stdio)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, stdio iocli.IO, serverURL, dbPath string, resend int, command string, args []string) error {
	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(serverURL, api.WithLogger(logger))

	sess := session.New(boltStorage, apiClient, logger)
	defer sess.Close()

	unsubscribe := sess.Subscribe(func(st session.State) {
		logger.Debug("session changed",
			slog.Bool("authenticated", st.IsAuthenticated),
			slog.Bool("need_bind_phone", st.NeedBindPhone),
			slog.Bool("loading", st.IsLoading))
	})
	defer unsubscribe()

	c := cli.New(stdio, apiClient, sess, guard.Default(), cli.Options{
		Logger: logger,
		Resend: resend,
	})

	return c.Run(ctx, command, args)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("GophGate Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
