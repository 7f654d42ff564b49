package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/bugsage/bugsage/app/db"
	appLogger "github.com/bugsage/bugsage/app/logger"
	"github.com/bugsage/bugsage/app/session"
	"github.com/bugsage/bugsage/config"
	"github.com/bugsage/bugsage/internal/api/auth"
	"github.com/bugsage/bugsage/internal/api/bugs"
	"github.com/bugsage/bugsage/internal/api/dashboard"
	"github.com/bugsage/bugsage/internal/api/projects"
	"github.com/bugsage/bugsage/internal/router"
	"github.com/bugsage/bugsage/web"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Session store ---
	redisClient, err := session.NewRedisClient(ctx, &cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()
	sessions := session.NewStore(redisClient, cfg.Auth.SessionTTL, logger)

	// --- Dependency injection ---
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, sessions, cfg.Auth.PasswordMinLength, logger)
	authHandler := auth.NewAuthHandler(authService, cfg.Auth.SessionCookie, cfg.Auth.SessionTTL, logger)

	bugsRepo := bugs.NewPostgresBugsRepo(pool, logger)
	bugsService := bugs.NewBugsService(bugsRepo, cfg.Pagination.BugsPerPage, logger)
	bugsHandler := bugs.NewBugsHandler(bugsService, logger)

	projectsRepo := projects.NewPostgresProjectsRepo(pool, logger)
	projectsService := projects.NewProjectsService(projectsRepo, logger)
	projectsHandler := projects.NewProjectsHandler(projectsService, logger)

	dashboardRepo := dashboard.NewPostgresDashboardRepo(pool, logger)
	dashboardService := dashboard.NewDashboardService(dashboardRepo, logger)
	dashboardHandler := dashboard.NewDashboardHandler(dashboardService, logger)

	routerConfig := &router.Config{
		AuthHandler:            authHandler,
		BugsHandler:            bugsHandler,
		ProjectsHandler:        projectsHandler,
		DashboardHandler:       dashboardHandler,
		AuthenticateMiddleware: auth.Authenticate(sessions, cfg.Auth.SessionCookie, logger),
		RequireAdminMiddleware: auth.RequireAdmin(logger),
		StaticHandler:          web.Handler(),
	}
	apiRouter := router.SetupRouter(routerConfig)

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", apiRouter)

	// --- HTTP server ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
