// Package main provides the entrypoint for the OptiRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/api"
	"github.com/optiroute/optiroute/internal/api/handler"
	"github.com/optiroute/optiroute/internal/api/middleware"
	"github.com/optiroute/optiroute/internal/auth"
	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/database"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/geocode/nominatim"
	"github.com/optiroute/optiroute/internal/geocode/openrouteservice"
	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/internal/optimizer"
	"github.com/optiroute/optiroute/internal/provider/resilience"
	"github.com/optiroute/optiroute/internal/route"
	"github.com/optiroute/optiroute/internal/solver"
	"github.com/optiroute/optiroute/internal/streetgraph"
	"github.com/optiroute/optiroute/internal/streetgraph/overpass"
	"github.com/optiroute/optiroute/internal/telemetry"
	"github.com/optiroute/optiroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "optiroute-api"

	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting OptiRoute API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Provider health registry and per-provider request metrics
	registry := resilience.NewRegistry()

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Geocoding provider chain: OpenRouteService first when configured,
	// Nominatim as the always-available fallback.
	var geocodeProviders []geocode.Provider
	if orsKey := os.Getenv("ORS_API_KEY"); orsKey != "" {
		geocodeProviders = append(geocodeProviders, openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   orsKey,
			Registry: registry,
			Metrics:  providerMetrics,
			Logger:   log,
		}))
		log.Info().Msg("openrouteservice geocoder initialized")
	} else {
		log.Warn().Msg("ORS_API_KEY not set, geocoding uses Nominatim only")
	}
	geocodeProviders = append(geocodeProviders, nominatim.NewClient(nominatim.ClientConfig{
		CountryCodes: os.Getenv("GEOCODE_COUNTRY_CODES"),
		Logger:       log,
	}))

	geocoder := geocode.NewService(geocode.ServiceConfig{
		Providers: geocodeProviders,
		Logger:    log,
		Metrics:   providerMetrics,
	})

	// Street networks from the Overpass API
	networks := streetgraph.NewService(streetgraph.ServiceConfig{
		Provider: overpass.NewClient(overpass.ClientConfig{
			BaseURL:  os.Getenv("OVERPASS_BASE_URL"),
			Registry: registry,
			Metrics:  providerMetrics,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})

	// Fuel prices
	prices := evaluate.NewPriceService(evaluate.PriceServiceConfig{Logger: log})

	// Cache janitor sweeps all TTL stores once per optimize request
	janitor := cache.NewJanitor(log, geocoder.Cache(), networks.Cache(), prices.Cache())

	optimizeService := optimizer.NewService(optimizer.ServiceConfig{
		Geocoder: geocoder,
		Matrices: matrix.NewBuilder(matrix.BuilderConfig{
			Networks: networks,
			Logger:   log,
		}),
		Solver: solver.New(solver.Config{Logger: log}),
		Evaluator: evaluate.NewEvaluator(evaluate.EvaluatorConfig{
			Prices: prices,
			Logger: log,
		}),
		Janitor: janitor,
		Logger:  log,
	})

	routeService := route.NewService(route.ServiceConfig{
		Repository: route.NewPostgresRepository(pool),
		Optimizer:  optimizeService,
		Logger:     log,
	})
	log.Info().Msg("route service initialized")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	// Optional async optimization queue
	var queue handler.OptimizeQueue
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	topicName := os.Getenv("PUBSUB_TOPIC")
	if projectID != "" && topicName != "" {
		publisher, pubErr := worker.NewPublisher(ctx, worker.PublisherConfig{
			ProjectID: projectID,
			TopicName: topicName,
			Logger:    log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to initialize job publisher")
		}
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close job publisher")
			}
		}()
		queue = publisher
		log.Info().Str("topic", topicName).Msg("async optimization queue initialized")
	} else {
		log.Info().Msg("async optimization queue not configured, requests run synchronously")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		Tokens:       jwtService,
		RouteService: routeService,
		PriceService: prices,
		Providers:    registry,
		DB:           pool,
		Queue:        queue,
	})

	// Create HTTP server
	// Synchronous optimization may wait on an Overpass network fetch, so
	// the write timeout must exceed the fetch timeout.
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
