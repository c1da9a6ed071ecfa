package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nursat/filevault/internal/account"
	"github.com/nursat/filevault/internal/auth"
	"github.com/nursat/filevault/internal/config"
	"github.com/nursat/filevault/internal/file"
	"github.com/nursat/filevault/internal/logger"
	"github.com/nursat/filevault/internal/metrics"
	"github.com/nursat/filevault/internal/quota"
	"github.com/nursat/filevault/internal/server"
	"github.com/nursat/filevault/internal/share"
	"github.com/nursat/filevault/internal/storage"
)

func main() {
	// Local development convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storage.RunMigrations(ctx, cfg.Postgres); err != nil {
		logg.Fatal("run migrations", zap.Error(err))
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		logg.Fatal("connect minio", zap.Error(err))
	}

	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		logg.Fatal("ensure bucket", zap.Error(err))
	}

	metrics.InitMetrics()

	objectStore := file.NewMinIOStore(minioClient)

	accountRepo := account.NewRepository(dbPool)
	accountService := account.NewService(accountRepo, objectStore, cfg.MinIO.Bucket, cfg.Auth)

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(accountService, authRepo, cfg.Auth)

	quotaRepo := quota.NewRepository(dbPool)
	quotaService := quota.NewService(quotaRepo, cfg.Limits.QuotaBytes)

	fileRepo := file.NewRepository(dbPool)
	fileService := file.NewService(fileRepo, quotaService, objectStore, cfg.MinIO.Bucket,
		cfg.Limits.MaxFileSizeBytes, cfg.Limits.FilesPerPage)

	shareRepo := share.NewRepository(dbPool)
	shareService := share.NewService(shareRepo, fileService, objectStore, cfg.MinIO.Bucket, cfg.Limits)

	router := server.NewRouter(server.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		AuthService:    authService,
		FileService:    fileService,
		QuotaService:   quotaService,
		ShareService:   shareService,
		Pool:           dbPool,
		MinIO:          minioClient,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("FileVault API listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}
