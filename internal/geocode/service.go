package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/telemetry"
)

// DefaultCacheTTL is how long a resolved coordinate stays valid.
// Street addresses move rarely; a day keeps provider traffic low.
const DefaultCacheTTL = 24 * time.Hour

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Providers is the ordered fallback chain. The first provider that
	// answers wins; later providers are only consulted on failure.
	Providers []Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL overrides DefaultCacheTTL when non-zero.
	CacheTTL time.Duration

	// Metrics records cache hit rates (optional).
	Metrics *telemetry.ProviderMetrics
}

// Service resolves addresses through an ordered provider chain with a TTL
// cache in front. It is safe for concurrent use.
type Service struct {
	providers []Provider
	logger    zerolog.Logger
	cache     *cache.Store[string, Point]
	metrics   *telemetry.ProviderMetrics
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	return &Service{
		providers: cfg.Providers,
		logger:    cfg.Logger,
		cache:     cache.NewStore[string, Point](ttl),
		metrics:   cfg.Metrics,
	}
}

// Cache exposes the underlying store for janitor registration.
func (s *Service) Cache() *cache.Store[string, Point] {
	return s.cache
}

// Geocode resolves a single address. A cache hit within TTL answers without
// any external call; on a miss the provider chain is tried in order and the
// first successful result is cached regardless of which provider produced
// it. Returns ErrAddressNotFound when the whole chain fails.
func (s *Service) Geocode(ctx context.Context, address string) (Point, error) {
	key := CacheKey(address)

	if p, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("geocode", "geocode")
		}
		s.logger.Debug().Str("address", address).Msg("geocode cache hit")
		return p, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("geocode", "geocode")
	}

	var lastErr error
	for _, provider := range s.providers {
		p, err := provider.Geocode(ctx, address)
		if err == nil {
			s.cache.Put(key, p)
			s.logger.Debug().
				Str("address", address).
				Str("provider", provider.Name()).
				Float64("lat", p.Lat).
				Float64("lon", p.Lon).
				Msg("address geocoded")
			return p, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return Point{}, ctx.Err()
		}
		s.logger.Warn().
			Err(err).
			Str("address", address).
			Str("provider", provider.Name()).
			Msg("geocoding provider failed, trying next")
	}

	if lastErr == nil {
		lastErr = ErrProviderUnavailable
	}
	return Point{}, fmt.Errorf("%w: %q: %w", ErrAddressNotFound, address, lastErr)
}

// BatchError reports which address in a batch failed to resolve.
type BatchError struct {
	// Address is the address that could not be resolved.
	Address string

	// Index is the address's position in the batch.
	Index int

	// Err is the underlying geocoding error.
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("geocoding address %d %q: %v", e.Index, e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// GeocodeAll resolves addresses sequentially in the given order. Any single
// failure aborts the whole batch with a BatchError naming the failed
// address: a route missing a stop is not a valid route. Successfully
// resolved addresses stay cached even when a later one fails.
func (s *Service) GeocodeAll(ctx context.Context, addresses []string) ([]Point, error) {
	points := make([]Point, 0, len(addresses))
	for i, address := range addresses {
		p, err := s.Geocode(ctx, address)
		if err != nil {
			return nil, &BatchError{Address: address, Index: i, Err: err}
		}
		points = append(points, p)
	}
	return points, nil
}
