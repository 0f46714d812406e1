// Package app wires together all dependencies and runs the admin API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/merchantkit/admin-api/internal/catalog"
	"github.com/merchantkit/admin-api/internal/config"
	"github.com/merchantkit/admin-api/internal/event"
	handler "github.com/merchantkit/admin-api/internal/handler/http"
	"github.com/merchantkit/admin-api/internal/repository/postgres"
	"github.com/merchantkit/admin-api/internal/search"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/database"
	"github.com/merchantkit/admin-api/pkg/health"
	"github.com/merchantkit/admin-api/pkg/httpclient"
	pkgkafka "github.com/merchantkit/admin-api/pkg/kafka"
	"github.com/merchantkit/admin-api/pkg/tracing"
)

// App holds the running components of the admin API.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	cache      *redis.Client
	producer   *pkgkafka.Producer
	pages      *service.PageService
	catalogSvc *service.CatalogService
	httpServer *http.Server

	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	if cfg.OTELEnabled {
		shutdown, err := tracing.Init(ctx, tracing.Config{
			ServiceName: "admin-api",
			Endpoint:    cfg.OTELEndpoint,
			SampleRate:  cfg.OTELSampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.tracingShutdown = shutdown
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, "admin_api"))
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	cache, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.cache = cache

	var events event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka disabled, domain events will be discarded")
	}

	// Suggestion engine: Elasticsearch when configured, in-memory
	// otherwise.
	var engine search.Engine = search.NewMemoryEngine()
	if cfg.ElasticsearchAddr != "" {
		es, err := search.NewESEngine(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to elasticsearch: %w", err)
		}
		engine = es
	}

	// Catalog resolver: HTTP client with retry and a circuit breaker,
	// pointed at the catalog endpoints.
	resolver := catalog.NewClient(
		cfg.CatalogBaseURL,
		httpclient.NewBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.BreakerConfig{
				Name:         "catalog",
				MaxRequests:  cfg.CBMaxRequests,
				Interval:     time.Duration(cfg.CBInterval) * time.Second,
				Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
				FailureRatio: cfg.CBFailureRatio,
				MinRequests:  cfg.CBMinRequests,
			},
			logger,
		),
		logger,
	)

	// Build the dependency graph.
	discountRepo := postgres.NewDiscountRepository(pool)
	listingRepo := postgres.NewListingRepository(pool)
	pageRepo := postgres.NewPageRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	discountService := service.NewDiscountService(discountRepo, resolver, events, logger)
	listingService := service.NewListingService(listingRepo, events, logger)
	pageService := service.NewPageService(pageRepo, cache, events, logger)
	catalogService := service.NewCatalogService(catalogRepo, engine, logger)
	a.pages = pageService
	a.catalogSvc = catalogService

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return cache.Ping(ctx).Err()
	})

	router := handler.NewRouter(
		handler.Services{
			Discounts: discountService,
			Listings:  listingService,
			Pages:     pageService,
			Catalog:   catalogService,
		},
		healthHandler,
		handler.RouterConfig{
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// Warm the suggestion index in the background; startup does not
	// block on the catalog tables.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.catalogSvc.ReindexSuggestions(warmCtx); err != nil {
			a.logger.Warn("initial suggestion reindex failed", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Cancel any pending debounced cache refresh.
	a.pages.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
