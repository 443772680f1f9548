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
	"syscall"
	"time"

	"github.com/iudanet/studysync/internal/server/handlers"
	"github.com/iudanet/studysync/internal/server/middleware"
	"github.com/iudanet/studysync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	accessTokenTTL  = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
	rateLimit       = 100
	rateWindow      = time.Minute
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "studysync-server.db", "Path to SQLite database")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger, *addr, *dbPath); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath string) error {
	// Секрет для подписи токенов обязателен, дефолта нет
	secret := os.Getenv("STUDYSYNC_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("STUDYSYNC_JWT_SECRET environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Открываем хранилище, миграции применяются автоматически
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(secret),
		AccessTokenTTL: accessTokenTTL,
	}

	sessionHandler := handlers.NewSessionHandler(logger, jwtConfig)
	entityHandler := handlers.NewEntityHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger)

	authRequired := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/session", sessionHandler.Create)
	mux.Handle("PUT /api/v1/entities/{id}", authRequired(http.HandlerFunc(entityHandler.Save)))
	mux.Handle("GET /api/v1/entities/{id}", authRequired(http.HandlerFunc(entityHandler.Load)))
	mux.Handle("DELETE /api/v1/entities/{id}", authRequired(http.HandlerFunc(entityHandler.Delete)))

	// Цепочка: логирование -> recovery -> rate limit -> маршруты
	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(rateLimit, rateWindow, logger)(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func printVersion() {
	fmt.Printf("StudySync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
