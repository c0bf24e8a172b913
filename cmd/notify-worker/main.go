package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meesalavenugopal/novacare247/cmd/mainconfig"
	"github.com/meesalavenugopal/novacare247/internal/app/bootstrap"
	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("notify-worker drains SQS; set USE_MEMORY_QUEUE=false and NOTIFICATION_QUEUE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue, err := bootstrap.BuildNotificationQueue(cfg, &awsCfg)
	if err != nil {
		logger.Error("failed to build notification queue", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	worker := bootstrap.BuildNotificationWorker(cfg, &awsCfg, queue, metrics.NewNotificationMetrics(reg), logger)
	worker.Start(ctx)

	// Metrics only; the worker has no other HTTP surface.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	logger.Info("notification worker running", "queue", cfg.NotificationQueueURL, "workers", cfg.NotifyWorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("notification worker shutting down")

	cancel()
	worker.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
