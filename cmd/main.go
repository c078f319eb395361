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

	"github.com/Dosada05/esports-arena/config"
	"github.com/Dosada05/esports-arena/db"
	"github.com/Dosada05/esports-arena/handlers"
	"github.com/Dosada05/esports-arena/live"
	"github.com/Dosada05/esports-arena/repositories"
	api "github.com/Dosada05/esports-arena/routes"
	"github.com/Dosada05/esports-arena/services"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// @title Esports Arena API
// @version 1.0
// @description Tournaments, registrations, player stats, leaderboards and events.
// @BasePath /api/v1
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
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	utils.SetLegacyNamespace(cfg.LegacyIDNamespace)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	// os.Exit skips deferred calls, so exit paths call closeDB themselves.
	closeDB := func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply database schema", slog.Any("error", err))
			closeDB()
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader := storage.NewDisabledUploader()
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			closeDB()
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, uploads are disabled")
	}

	var mailer services.Mailer
	if cfg.SMTPEnabled() {
		mailer = services.NewEmailService(services.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Pass:      cfg.SMTPPass,
			From:      cfg.SMTPFrom,
			PublicURL: cfg.PublicURL,
		})
		logger.Info("SMTP mailer initialized", slog.String("host", cfg.SMTPHost))
	} else {
		mailer = services.NewNoopMailer(logger)
		logger.Warn("SMTP is not configured, emails are only logged")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		wsHub.Run(appCtx)
	}()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tx := repositories.NewTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	profileRepo := repositories.NewPostgresProfileRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	profileService := services.NewProfileService(profileRepo, userRepo, uploader, logger)
	authService := services.NewAuthService(
		tx,
		userRepo,
		profileRepo,
		profileService,
		mailer,
		services.TokenConfig{Secret: []byte(cfg.JWTSecretKey), TTL: cfg.JWTTTL},
		nil,
		logger,
	)
	tournamentService := services.NewTournamentService(tx, tournamentRepo, profileRepo, uploader, wsHub, nil, logger)
	registrationService := services.NewRegistrationService(
		tx,
		registrationRepo,
		tournamentRepo,
		userRepo,
		profileRepo,
		uploader,
		mailer,
		wsHub,
		cfg.PublicURL,
		nil,
		logger,
	)
	statsService := services.NewStatsService(tx, statsRepo, userRepo, tournamentRepo, profileRepo, registrationRepo, uploader, wsHub, logger)
	leaderboardService := services.NewLeaderboardService(statsRepo, uploader, logger)
	eventService := services.NewEventService(tx, eventRepo, userRepo, profileRepo, uploader, nil, logger)
	adminUserService := services.NewAdminUserService(userRepo, profileRepo, registrationRepo, uploader, logger)
	dashboardService := services.NewDashboardService(userRepo, tournamentRepo, registrationRepo, eventRepo, nil)
	logger.Info("Services initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Profile:      handlers.NewProfileHandler(profileService),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Stats:        handlers.NewStatsHandler(statsService, leaderboardService),
		Event:        handlers.NewEventHandler(eventService),
		Admin:        handlers.NewAdminUserHandler(adminUserService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
		Health:       handlers.NewHealthHandler(dbConn),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		Users:          userRepo,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
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

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		} else {
			logger.Info("server stopped gracefully")
		}
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
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Hijacked websocket connections are not tracked by Shutdown; stopping the hub closes them.
	stopApp()
	<-hubDone
	closeDB()
	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
