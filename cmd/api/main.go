package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/meesalavenugopal/novacare247/cmd/mainconfig"
	"github.com/meesalavenugopal/novacare247/internal/app/bootstrap"
	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting novacare247 API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, sqlDB, err := bootstrap.ConnectDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer func() { _ = sqlDB.Close() }()

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	app, err := bootstrap.New(ctx, bootstrap.Deps{
		Config: cfg,
		Logger: logger,
		DB:     pool,
		SQL:    sqlDB,
		Redis:  redisClient,
		AWS:    awsCfg,
	})
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	if err := app.Accounts.EnsureAdmin(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword); err != nil {
		logger.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	app.Start(ctx)

	srv := newServer(cfg, app.Handler)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Warn("background shutdown incomplete", "error", err)
	}

	logger.Info("server stopped")
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// needsAWS reports whether any configured integration talks to AWS.
func needsAWS(cfg *appconfig.Config) bool {
	return !cfg.UseMemoryQueue ||
		cfg.SESEnabled ||
		strings.TrimSpace(cfg.BedrockModelID) != "" ||
		strings.TrimSpace(cfg.S3Bucket) != "" ||
		strings.TrimSpace(cfg.NotificationLedgerTable) != ""
}

// loadAWS returns nil when no AWS integration is configured so local runs
// need no credentials.
func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !needsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}
