// Package bootstrap assembles the API's services from configuration and
// shared infrastructure. Binaries own process concerns (signals, exit codes).
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/api/router"
	"github.com/meesalavenugopal/novacare247/internal/bookings"
	"github.com/meesalavenugopal/novacare247/internal/catalog"
	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/documents"
	httpmiddleware "github.com/meesalavenugopal/novacare247/internal/http/middleware"
	"github.com/meesalavenugopal/novacare247/internal/notify"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/internal/onboarding"
	"github.com/meesalavenugopal/novacare247/internal/provisioning"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const (
	limiterEvictInterval = time.Minute
	limiterIdleCutoff    = 10 * time.Minute
)

// ConnectDatabase opens the pgx pool and a database/sql handle over the same
// pool for the reporting queries.
func ConnectDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, *sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, errors.New("bootstrap: DATABASE_URL is required")
	}
	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// Deps is the infrastructure an App is built on. Redis and AWS are optional.
type Deps struct {
	Config   *appconfig.Config
	Logger   *logging.Logger
	DB       db.DB
	SQL      *sql.DB
	Redis    *redis.Client
	AWS      *aws.Config
	Queue    notify.Queue
	Registry *prometheus.Registry
}

// App is the assembled API.
type App struct {
	Handler    http.Handler
	Accounts   *accounts.Service
	Dispatcher *notify.Dispatcher
	Limiter    *httpmiddleware.RateLimiter

	queue   notify.Queue
	metrics *metrics.NotificationMetrics
	worker  *notify.Worker
	closers []io.Closer
	cfg     *appconfig.Config
	awsCfg  *aws.Config
	logger  *logging.Logger
}

// New wires repositories, services, handlers and the router.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("bootstrap: database is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("bootstrap: JWT_SECRET is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	metricsHandler := promhttp.Handler()
	if deps.Registry != nil {
		reg = deps.Registry
		metricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}
	notifyMetrics := metrics.NewNotificationMetrics(reg)

	queue := deps.Queue
	if queue == nil {
		var err error
		if queue, err = BuildNotificationQueue(cfg, deps.AWS); err != nil {
			return nil, err
		}
	}
	dispatcher := notify.NewDispatcher(queue, notifyMetrics, logger)
	composer := BuildComposer(cfg)

	advisor, advisorCloser, err := BuildAdvisor(ctx, cfg, deps.AWS, metrics.NewAdvisoryMetrics(reg), logger)
	if err != nil {
		return nil, err
	}

	issuer := accounts.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	accountService := accounts.NewService(deps.DB, issuer, logger)

	catalogRepo := catalog.NewRepository(deps.DB)

	engineOpts := []onboarding.EngineOption{
		onboarding.WithEngineMetrics(metrics.NewOnboardingMetrics(reg)),
		onboarding.WithObservers(onboarding.ApplicantNotifications(
			notify.NewOnboardingNotifier(composer, dispatcher, logger),
		)),
	}
	provisioner := provisioning.New(logger)
	doctorService := onboarding.NewDoctorService(onboarding.NewDoctorStore(deps.DB, logger), advisor, provisioner, logger, engineOpts...)
	clinicService := onboarding.NewClinicService(onboarding.NewClinicStore(deps.DB, logger), advisor, provisioner, logger, engineOpts...)

	bookingService := bookings.NewService(
		bookings.NewRepository(deps.DB),
		catalogRepo,
		BuildLocker(deps.Redis, cfg, logger),
		logger,
		bookings.WithNotifications(dispatcher, composer),
		bookings.WithMetrics(metrics.NewBookingMetrics(reg)),
		bookings.WithLocation(cfg.Location()),
	)

	var limiter *httpmiddleware.RateLimiter
	if cfg.PublicRateLimit > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     metricsHandler,
		PublicLimiter:      limiter,
		Accounts:           accounts.NewHandler(accountService, logger),
		Onboarding:         onboarding.NewHandler(doctorService, clinicService, onboarding.NewDashboard(deps.SQL), logger),
		Catalog:            catalog.NewHandler(catalogRepo, advisor, logger),
		Bookings:           bookings.NewHandler(bookingService, logger),
		Documents:          documents.NewHandler(BuildDocumentStore(cfg, deps.AWS, logger), logger),
	})

	return &App{
		Handler:    handler,
		Accounts:   accountService,
		Dispatcher: dispatcher,
		Limiter:    limiter,
		queue:      queue,
		metrics:    notifyMetrics,
		closers:    []io.Closer{advisorCloser},
		cfg:        cfg,
		awsCfg:     deps.AWS,
		logger:     logger,
	}, nil
}

// BuildDocumentStore returns an S3-backed store, or a disabled one when no
// bucket is configured.
func BuildDocumentStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *documents.Store {
	storeCfg := documents.Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.AWSRegion,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UploadTTL:     cfg.UploadURLTTL,
		MaxBytes:      cfg.UploadMaxBytes,
	}
	if strings.TrimSpace(cfg.S3Bucket) == "" || awsCfg == nil {
		return documents.NewStore(nil, storeCfg, logger)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	return documents.NewStore(client, storeCfg, logger)
}

// Start launches background work: limiter eviction and, with the in-process
// queue, the notification worker. Both stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.Limiter != nil {
		go a.Limiter.RunEviction(ctx, limiterEvictInterval, limiterIdleCutoff)
	}
	if _, ok := a.queue.(*notify.MemoryQueue); ok {
		a.worker = BuildNotificationWorker(a.cfg, a.awsCfg, a.queue, a.metrics, a.logger)
		a.worker.Start(ctx)
		a.logger.Info("in-process notification worker started")
	}
}

// Shutdown waits for pending enqueues and worker exit, then releases
// provider connections. Cancel the Start context first.
func (a *App) Shutdown() error {
	a.Dispatcher.Wait()
	if a.worker != nil {
		a.worker.Wait()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("bootstrap: shutdown: %w", errors.Join(errs...))
	}
	return nil
}
