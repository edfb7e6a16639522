package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/config"
	"github.com/Maldini80/torneos-core/db"
	"github.com/Maldini80/torneos-core/handlers"
	"github.com/Maldini80/torneos-core/middleware"
	"github.com/Maldini80/torneos-core/repositories"
	api "github.com/Maldini80/torneos-core/routes"
	"github.com/Maldini80/torneos-core/services"
	"github.com/Maldini80/torneos-core/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Загрузчик архивов (Cloudflare R2). Не задан — работаем без архивирования.
	var archiveService services.ArchiveService
	if cfg.R2AccountID != "" {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiveService = services.NewArchiveService(uploader, logger)
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 is not configured, tournament archiving disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Репозиторий и сервисы
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)

	progressionService := services.NewProgressionService(brackets.NewSingleEliminationGenerator(), logger)
	matchService := services.NewMatchService(
		tournamentRepo,
		progressionService,
		archiveService,
		wsHub,
		logger,
		cfg.ReportGraceWindow,
	)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		brackets.NewRoundRobinGenerator(),
		wsHub,
		logger,
	)
	teamService := services.NewTeamService(tournamentRepo, wsHub, logger)
	logger.Info("services initialized")

	// Фоновая проверка зависших отчётов
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweepScheduler(sweepCtx, matchService, cfg.SweepInterval, logger)

	// HTTP-сервер
	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.SetupRoutes(auth, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Team:       handlers.NewTeamHandler(teamService),
		Match:      handlers.NewMatchHandler(matchService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		logger.Info("shutting down server", slog.String("signal", s.String()))

		stopSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	logger.Info("starting server", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	if err := <-shutdownErr; err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// runSweepScheduler периодически закрывает матчи с единственным отчётом,
// по которым второй капитан так и не ответил.
func runSweepScheduler(ctx context.Context, ms services.MatchService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := ms.SweepStuckMatches(runCtx); err != nil {
			logger.Error("stuck match sweep failed", slog.Any("error", err))
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
