// Package main runs the Haode farm storefront API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/aim840912/haode-api/internal/app"
	"github.com/aim840912/haode-api/internal/config"
	"github.com/aim840912/haode-api/internal/httpapi"
	"github.com/aim840912/haode-api/internal/httpserver"
	"github.com/aim840912/haode-api/internal/jobs"
	"github.com/aim840912/haode-api/internal/metrics"
	"github.com/aim840912/haode-api/internal/middleware"
	"github.com/aim840912/haode-api/internal/storage/postgres"
	"github.com/aim840912/haode-api/pkg/logger"
	"github.com/aim840912/haode-api/supabase/client"
)

func main() {
	envFile := flag.String("env", ".env", "Path to optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log = log.WithField("component", "server")

	stores, closeDB, err := buildStores(cfg, log)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	if closeDB != nil {
		defer closeDB()
	}

	opts := app.Options{Metrics: metrics.New()}
	if cfg.RedisAddr != "" {
		opts.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer opts.Redis.Close()
	}
	if cfg.SupabaseURL != "" {
		sb, err := client.NewEnhanced(client.EnhancedConfig{
			Config:               client.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey()},
			RetryConfig:          client.DefaultRetryConfig(),
			CircuitBreakerConfig: client.DefaultCircuitBreakerConfig(),
			EnableResilience:     true,
		})
		if err != nil {
			log.Fatalf("supabase client: %v", err)
		}
		opts.Supabase = sb
		opts.ImageBucket = cfg.ImageBucket
		opts.Realtime = client.NewRealtimeClient(cfg.SupabaseURL, cfg.SupabaseKey())
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		log.Fatalf("application: %v", err)
	}

	scheduler := jobs.New(application, application.Audit, jobs.Options{
		WarmInterval:   cfg.CacheWarmInterval,
		AuditRetention: cfg.AuditRetention,
	}, log)
	if err := application.Attach(scheduler); err != nil {
		log.Fatalf("attach scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httpserver.New(fmt.Sprintf(":%d", cfg.Port), buildHandler(ctx, cfg, application, opts, log), log)
	if err := application.Attach(srv); err != nil {
		log.Fatalf("attach http server: %v", err)
	}

	if err := application.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	log.WithField("port", cfg.Port).Info("server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-srv.Err():
		log.WithError(err).Error("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildStores opens postgres when DATABASE_URL is set; otherwise every
// store falls back to the in-memory implementation inside app.New.
func buildStores(cfg config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warnf("DATABASE_URL not set; using in-memory storage")
		return app.Stores{}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Products:  store,
		Inquiries: store,
		Orders:    store,
		Audit:     store,
		Locations: store,
		Culture:   store,
		FarmTours: store,
		Reviews:   store,
	}, func() { db.Close() }, nil
}

// buildHandler assembles the middleware chain around the REST mux.
// Rate limiting runs after authentication so authenticated callers are
// keyed by user rather than by IP.
func buildHandler(ctx context.Context, cfg config.Config, application *app.Application, opts app.Options, log *logger.Logger) http.Handler {
	api := httpapi.NewHandler(application, log)

	limiter := middleware.NewRateLimiter(middleware.DefaultPolicies(), opts.Redis, application.Metrics, log)
	limiter.StartCleanup(ctx, time.Hour)
	authn := middleware.NewAuthenticator(cfg.SupabaseJWTSecret, log)
	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins)

	var h http.Handler = api
	h = limiter.Handler(h)
	h = authn.Authenticate(h)
	h = middleware.Metrics(application.Metrics)(h)
	h = middleware.Logging(log)(h)
	h = cors.Handler(h)

	root := http.NewServeMux()
	root.Handle("/metrics", application.Metrics.Handler())
	root.Handle("/", h)
	return root
}
