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

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/config"
	"github.com/Dosada05/bracket-sync/db"
	"github.com/Dosada05/bracket-sync/handlers"
	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	api "github.com/Dosada05/bracket-sync/routes"
	"github.com/Dosada05/bracket-sync/services"
	"github.com/Dosada05/bracket-sync/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// @title Bracket Sync API
// @version 1.0
// @description Управление сеткой турнира: раунды, пары, счёт и синхронизация документа.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("repo", cfg.GitHubOwner+"/"+cfg.GitHubRepo),
		slog.Any("grades", cfg.Grades),
	)

	// Локальное хранилище: Postgres, если задан DATABASE_URL, иначе память процесса
	store := repositories.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
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
		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.Migrate(migrateCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		store = repositories.NewPostgresStore(dbConn)
		logger.Info("database connection established")
	} else {
		logger.Warn("DATABASE_URL is not set, local cache and structural log are kept in memory")
	}

	// Архив версий документа в Cloudflare R2
	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewDocumentArchiver(uploader)
		logger.Info("Cloudflare R2 archive initialized", slog.String("bucket", cfg.R2BucketName))
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger.With(slog.String("component", "hub")))
	go wsHub.Run()
	defer wsHub.Stop()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	clock := repositories.SystemClock{}
	documents := repositories.NewGitHubDocumentRepository(repositories.GitHubConfig{
		BaseURL: cfg.GitHubAPIURL,
		Owner:   cfg.GitHubOwner,
		Repo:    cfg.GitHubRepo,
		Retry: repositories.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		RateLimit: rate.Limit(cfg.RemoteRate),
		Burst:     int(cfg.RemoteRate) + 1,
		Timeout:   cfg.RemoteTimeout,
	}, logger)
	cache := repositories.NewDocumentCache(store, cfg.CacheTTL, clock, logger)
	structuralLog := repositories.NewStructuralLogRepository(store)

	// Инициализация сервисов
	signer, err := services.NewRoleTokenSigner(cfg.RoleTokenSecret)
	if err != nil {
		logger.Error("invalid role token secret", slog.Any("error", err))
		os.Exit(1)
	}
	authService := services.NewAuthService(documents, signer, services.NewSessionStore(), services.AuthConfig{
		AbsoluteAdmin: cfg.AbsoluteAdmin,
		ChallengeHash: cfg.StructuralCodeHash,
	}, clock, logger)

	grades := make([]models.Grade, 0, len(cfg.Grades))
	for _, g := range cfg.Grades {
		grades = append(grades, models.Grade(g))
	}
	syncService := services.NewSyncService(documents, cache, archiver, wsHub, services.SyncConfig{
		PathTemplate: cfg.PathTemplate,
		Grades:       grades,
	}, clock, logger)

	notifier := services.NewSMTPNotifier(services.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Pass:       cfg.SMTPPass,
		From:       cfg.SMTPFrom,
		Recipients: cfg.NotifyEmails,
	}, logger)
	audit := services.NewAuditLogger(structuralLog, notifier, wsHub, clock, logger)

	engine := services.NewEngine(syncService, authService, audit, wsHub, services.EngineConfig{
		ScoreRange:      models.ScoreRange{Min: cfg.ScoreMin, Max: cfg.ScoreMax},
		DefaultLocation: cfg.DefaultLocation,
		HistoryDepth:    cfg.HistoryDepth,
	}, logger)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, engine, logger)
	competitionHandler := handlers.NewCompetitionHandler(engine, logger)
	roundHandler := handlers.NewRoundHandler(engine, logger)
	pairingHandler := handlers.NewPairingHandler(engine, logger)
	swapHandler := handlers.NewSwapHandler(engine, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, engine, cfg.CORSAllowedOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			Auth:           authService,
			LoginLimiter:   middleware.NewIPRateLimiter(rate.Limit(cfg.LoginRateLimit), 5),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:         logger,
		},
		authHandler,
		competitionHandler,
		roundHandler,
		pairingHandler,
		swapHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
		// Сохранение может ждать повторов к GitHub, поэтому запас по записи больше.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
