package streetgraph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/telemetry"
)

const (
	// DefaultCacheTTL is how long a fetched network stays valid. Street
	// topology changes slowly; an hour keeps repeated optimizations in
	// the same area from re-fetching.
	DefaultCacheTTL = time.Hour

	// CellSizeDegrees is the cache grid cell size. Points within the
	// same cell share one network (~10km at the equator).
	CellSizeDegrees = 0.09
)

// ServiceConfig holds configuration for the street network service.
type ServiceConfig struct {
	// Provider fetches street networks.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache networks (default: DefaultCacheTTL).
	CacheTTL time.Duration

	// Metrics records cache hit rates (optional).
	Metrics *telemetry.ProviderMetrics
}

// Service provides street networks with grid-cell caching. One network is
// fetched per grid cell and reused for every point pair inside it.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cache    *cache.Store[string, *Graph]
	metrics  *telemetry.ProviderMetrics
}

// NewService creates a new street network service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		cache:    cache.NewStore[string, *Graph](ttl),
		metrics:  cfg.Metrics,
	}
}

// Cache exposes the underlying store for janitor registration.
func (s *Service) Cache() *cache.Store[string, *Graph] {
	return s.cache
}

// CellKey quantizes a position to its cache grid cell.
// Format: {cellLat},{cellLon} truncated to two decimals.
func CellKey(lat, lon float64) string {
	cellLat := math.Floor(lat/CellSizeDegrees) * CellSizeDegrees
	cellLon := math.Floor(lon/CellSizeDegrees) * CellSizeDegrees
	return fmt.Sprintf("%.2f,%.2f", cellLat, cellLon)
}

// Network returns the street network covering the grid cell that contains
// the given center point, fetching it from the provider on a cache miss.
func (s *Service) Network(ctx context.Context, lat, lon float64) (*Graph, error) {
	key := CellKey(lat, lon)

	fetched := false
	graph, err := s.cache.GetOrCompute(key, func() (*Graph, error) {
		fetched = true
		s.logger.Debug().
			Str("cell", key).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Msg("fetching street network")

		g, err := s.provider.FetchNetwork(ctx, lat, lon)
		if err != nil {
			return nil, err
		}

		s.logger.Debug().
			Str("cell", key).
			Int("nodes", g.NodeCount()).
			Int("edges", g.EdgeCount()).
			Msg("cached street network")
		return g, nil
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("cell", key).
			Msg("street network unavailable")
		return nil, fmt.Errorf("fetching network for cell %s: %w", key, err)
	}

	if s.metrics != nil {
		if fetched {
			s.metrics.RecordCacheMiss(s.provider.Name(), "network")
		} else {
			s.metrics.RecordCacheHit(s.provider.Name(), "network")
		}
	}

	return graph, nil
}

// PathMeters returns the shortest drivable distance in meters between two
// points on the given network, snapping each point to its nearest vertex.
func PathMeters(g *Graph, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	from, ok := g.NearestNode(fromLat, fromLon)
	if !ok {
		return 0, ErrEmptyGraph
	}
	to, ok := g.NearestNode(toLat, toLon)
	if !ok {
		return 0, ErrEmptyGraph
	}
	return g.ShortestPathMeters(from, to)
}
