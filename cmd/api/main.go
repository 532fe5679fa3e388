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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"jobtracker/internal/api"
	"jobtracker/internal/auth"
	"jobtracker/internal/config"
	"jobtracker/internal/database"
	"jobtracker/internal/scan"
	"jobtracker/internal/storage"
	"jobtracker/internal/tracker"
)

func main() {
	// 本地开发时从 .env 读取，容器内直接用环境变量
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.WaitForDatabase(context.Background(), db, cfg.Database.WaitTimeout, logger); err != nil {
		log.Fatalf("database not ready: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	authService, err := auth.LoadAuthService(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("load auth service: %v", err)
	}

	var scanner tracker.Scanner
	if cfg.Upload.ClamdAddr != "" {
		scanner = scan.NewClamdScanner(cfg.Upload.ClamdAddr)
		logger.Info("resume scanning enabled", slog.String("clamd_addr", cfg.Upload.ClamdAddr))
	}

	services := api.Services{
		Users:        tracker.NewUserService(db, storageClient, logger),
		Countries:    tracker.NewCountryService(db),
		Tags:         tracker.NewTagService(db),
		Companies:    tracker.NewCompanyService(db),
		Resumes:      tracker.NewResumeService(db, storageClient, scanner, cfg.Upload.MaxResumeBytes, logger),
		Applications: tracker.NewApplicationService(db),
		Interviews:   tracker.NewInterviewService(db),
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, services, authService, redisClient, logger, cfg.Auth)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
