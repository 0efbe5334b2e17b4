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

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/resell/internal"
	"github.com/dukerupert/resell/internal/cookie"
	"github.com/dukerupert/resell/internal/coupon"
	"github.com/dukerupert/resell/internal/events"
	"github.com/dukerupert/resell/internal/handler"
	"github.com/dukerupert/resell/internal/handler/storefront"
	"github.com/dukerupert/resell/internal/middleware"
	"github.com/dukerupert/resell/internal/router"
	"github.com/dukerupert/resell/internal/routes"
	"github.com/dukerupert/resell/internal/service"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/dukerupert/resell/internal/tax"
	"github.com/dukerupert/resell/internal/telemetry"
	"github.com/dukerupert/resell/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	businessMetrics := telemetry.NewBusinessMetrics(cfg.MetricsNamespace, reg)
	httpMetrics := middleware.NewMetrics(cfg.MetricsNamespace, reg)

	healthChecks := map[string]handler.HealthCheck{}

	// Cart snapshot storage
	var pool *pgxpool.Pool
	if cfg.Storage.Provider == "postgres" {
		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(ctx, cfg.DatabaseUrl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pool, err = pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()
		healthChecks["postgres"] = pool.Ping
	}

	snapshots, err := storage.NewStorage(cfg.Storage, pool)
	if err != nil {
		return fmt.Errorf("failed to initialize cart storage: %w", err)
	}
	logger.Info("Cart storage initialized", "provider", cfg.Storage.Provider)

	// Coupon validation service
	couponClient, err := coupon.NewClient(coupon.Config{
		BaseURL:   cfg.Coupon.BaseURL,
		ApplyPath: cfg.Coupon.ApplyPath,
		Timeout:   cfg.Coupon.Timeout,
		HTTPClient: &http.Client{
			Timeout:   cfg.Coupon.Timeout,
			Transport: &telemetry.HTTPTransport{},
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize coupon client: %w", err)
	}

	calc, err := tax.NewCalculator(cfg.Tax.Rate)
	if err != nil {
		return fmt.Errorf("failed to initialize tax calculator: %w", err)
	}

	// Cart events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:  cfg.Events.Brokers,
			Topic:    cfg.Events.Topic,
			ClientID: cfg.Events.ClientID,
		}, logger, businessMetrics)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		if err := kp.EnsureTopic(ctx); err != nil {
			logger.Warn("could not ensure events topic, publishing anyway", "topic", cfg.Events.Topic, "error", err)
		}
		publisher = kp
		logger.Info("Publishing cart events", "topic", cfg.Events.Topic, "brokers", cfg.Events.Brokers)
	}
	defer publisher.Close()

	cartService, err := service.NewCartService(service.Config{
		Storage:   snapshots,
		Validator: couponClient,
		Tax:       calc,
		Publisher: publisher,
		Metrics:   businessMetrics,
		Logger:    logger,
		IdleTTL:   cfg.Cart.IdleTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cart service: %w", err)
	}

	sweeper := worker.NewWorker(cartService, worker.Config{PollInterval: cfg.Cart.SweepInterval}, logger)
	go func() {
		defer telemetry.RecoverWithSentry()
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cart sweeper stopped", "error", err)
		}
	}()

	// HTTP
	trustedProxies, err := middleware.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if len(trustedProxies) == 0 {
		logger.Warn("TRUSTED_PROXIES not set, client IPs are taken from proxy headers as-is")
	}

	defaultLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.HTTP.RateLimitRPS,
		BurstSize:         cfg.HTTP.RateLimitBurst,
	})
	defer defaultLimiter.Stop()

	couponLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.HTTP.CouponRateLimitRPS,
		BurstSize:         cfg.HTTP.CouponRateLimitBurst,
	})
	defer couponLimiter.Stop()

	chain := []router.Middleware{
		middleware.RequestID,
		middleware.WithClientIP(trustedProxies...),
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		middleware.Recover,
		httpMetrics.Middleware,
		router.Logger(logger),
	}
	if len(cfg.HTTP.CORSOrigins) > 0 {
		chain = append(chain, router.CORS(cfg.HTTP.CORSOrigins))
	}
	chain = append(chain,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Cookie.Secure)),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
		defaultLimiter.Middleware,
	)

	r := router.New(chain...)

	routes.RegisterStorefrontRoutes(r, routes.StorefrontDeps{
		CartHandler:   storefront.NewCartHandler(cartService),
		Cookie:        cookie.NewConfig(cfg.Cookie.Domain, cfg.Cookie.Secure),
		CouponLimiter: couponLimiter,
		Extra: []router.Middleware{
			telemetry.SentryContextMiddleware(storefront.SessionFromContext),
		},
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  handler.NewHealthHandler(healthChecks),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting cart server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down cart server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.CaptureMessage("cart server shutdown did not drain", sentry.LevelWarning)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Cart server stopped", "active_carts", cartService.ActiveCarts())
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
