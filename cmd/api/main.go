// Package main is the entrypoint for the SmartLinks tracking API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdmc/smartlinks/internal/analytics"
	"github.com/mdmc/smartlinks/internal/cache"
	"github.com/mdmc/smartlinks/internal/config"
	"github.com/mdmc/smartlinks/internal/geo"
	"github.com/mdmc/smartlinks/internal/handler"
	"github.com/mdmc/smartlinks/internal/metrics"
	"github.com/mdmc/smartlinks/internal/middleware"
	"github.com/mdmc/smartlinks/internal/repository"
	"github.com/mdmc/smartlinks/internal/server"
	"github.com/mdmc/smartlinks/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Metrics registry with process and Go runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	// Geolocation: two providers behind circuit breakers, TTL cache in front
	geoResolver := geo.NewResolver(geo.ResolverConfig{
		Primary:          geo.WithBreaker(geo.NewIPAPIProvider(cfg.GeoPrimaryURL)),
		Secondary:        geo.WithBreaker(geo.NewIPWhoProvider(cfg.GeoSecondaryURL)),
		PrimaryTimeout:   cfg.GeoPrimaryTimeout,
		SecondaryTimeout: cfg.GeoSecondaryTimeout,
		Cache:            geo.NewCache(cfg.GeoCacheTTL, cfg.GeoCacheMaxEntries, nil),
		Logger:           logger,
		Metrics:          recorder,
	})

	// Analytics: publisher feeds the Redis stream, worker aggregates daily stats
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)
	worker := analytics.NewWorker(cacheClient.Client(), repo, logger, analytics.NewConsumerID(), recorder)

	trackService := service.NewTrackService(service.TrackServiceConfig{
		Links:         repo,
		Clicks:        repo,
		Cache:         cacheClient,
		Geo:           geoResolver,
		Publisher:     publisher,
		Metrics:       recorder,
		Logger:        logger,
		TagTrackingID: cfg.TrackingDebugParam,
	})

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	trackHandler := handler.NewTrackHandler(trackService, logger, cfg.MaxRequestBodySize, !cfg.IsProduction())
	smartLinkHandler := handler.NewSmartLinkHandler(trackService, logger)

	r := setupRouter(routerDeps{
		base:      h,
		health:    healthHandler,
		track:     trackHandler,
		smartlink: smartLinkHandler,
		cache:     cacheClient,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
	})

	srv := server.New(server.Options{
		Handler:         r,
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	// The worker is registered before anything else so it drains last-read
	// batches while the database pool is still open.
	workerCtx, cancelWorker := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("stats worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("stats_worker", func(ctx context.Context) error {
		cancelWorker()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	base      *handler.Handler
	health    *handler.HealthHandler
	track     *handler.TrackHandler
	smartlink *handler.SmartLinkHandler
	cache     *cache.Cache
	registry  *prometheus.Registry
	cfg       *config.Config
	logger    *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.CORS(corsConfig(deps.cfg)))

	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/", deps.base.Hello)

	r.Method("GET", "/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  deps.logger,
		Cache:   deps.cache,
		Enabled: deps.cfg.RateLimitEnabled,
		RPS:     deps.cfg.RateLimitRPS,
		Burst:   deps.cfg.RateLimitBurst,
	}

	r.Route("/api", func(r chi.Router) {
		// The track endpoint handles its own 405 body, so all methods route
		// to it.
		r.With(middleware.RateLimitIP(rateLimitCfg)).HandleFunc("/track/click", deps.track.TrackClick)
		r.Get("/smartlinks/{id}", deps.smartlink.Get)
	})

	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

// corsConfig builds the CORS policy from configuration.
func corsConfig(cfg *config.Config) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return corsCfg
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips credentials from a connection URL for logging.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError removes known secrets from an error message before logging.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
