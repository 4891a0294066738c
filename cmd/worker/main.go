// Package main provides the entrypoint for the OptiRoute background worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

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

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "optiroute-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting OptiRoute worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	registry := resilience.NewRegistry()

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// The worker runs the same optimization pipeline as the API.
	var geocodeProviders []geocode.Provider
	if orsKey := os.Getenv("ORS_API_KEY"); orsKey != "" {
		geocodeProviders = append(geocodeProviders, openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   orsKey,
			Registry: registry,
			Metrics:  providerMetrics,
			Logger:   log,
		}))
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

	networks := streetgraph.NewService(streetgraph.ServiceConfig{
		Provider: overpass.NewClient(overpass.ClientConfig{
			BaseURL:  os.Getenv("OVERPASS_BASE_URL"),
			Registry: registry,
			Metrics:  providerMetrics,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})

	prices := evaluate.NewPriceService(evaluate.PriceServiceConfig{Logger: log})

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
		Janitor: cache.NewJanitor(log, geocoder.Cache(), networks.Cache(), prices.Cache()),
		Logger:  log,
	})

	routeService := route.NewService(route.ServiceConfig{
		Repository: route.NewPostgresRepository(pool),
		Optimizer:  optimizeService,
		Logger:     log,
	})

	prefetchJob := worker.NewPrefetchJob(worker.PrefetchJobConfig{
		Networks: networks,
		Logger:   log,
	})

	// Pub/Sub subscription
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required")
	}

	pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Routes:           routeService,
		PrefetchJob:      prefetchJob,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
	}
	defer func() {
		if closeErr := pubsubHandler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub handler")
		}
	}()

	// Health check endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Receive blocks until the context is cancelled.
	go func() {
		if err := pubsubHandler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
