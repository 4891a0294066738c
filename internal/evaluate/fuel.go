// Package evaluate turns a solved tour into operational figures: distance,
// duration, fuel use and cost, plus a shareable map link.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/cache"
)

// FuelType identifies a vehicle fuel.
type FuelType string

// Supported fuel types.
const (
	FuelDiesel   FuelType = "diesel"
	FuelGasoline FuelType = "gasoline"
	FuelEthanol  FuelType = "ethanol"
	FuelCNG      FuelType = "cng"
)

// ErrUnknownFuelType indicates a fuel type outside the supported set.
var ErrUnknownFuelType = errors.New("unknown fuel type")

// Valid reports whether the fuel type is supported.
func (f FuelType) Valid() bool {
	switch f {
	case FuelDiesel, FuelGasoline, FuelEthanol, FuelCNG:
		return true
	}
	return false
}

// Unit is the unit the fuel is sold and consumed in. Liquid fuels are
// priced per liter, CNG per cubic meter.
func (f FuelType) Unit() string {
	if f == FuelCNG {
		return "m3"
	}
	return "liter"
}

// defaultPrices are national average pump prices in BRL per liter
// (per cubic meter for CNG).
var defaultPrices = map[FuelType]float64{
	FuelDiesel:   5.80,
	FuelGasoline: 6.36,
	FuelEthanol:  4.56,
	FuelCNG:      4.90,
}

// DefaultPriceTTL is how long fetched prices stay valid.
const DefaultPriceTTL = 30 * time.Minute

// PriceSource provides current fuel prices.
type PriceSource interface {
	// Prices returns the current price per fuel type.
	Prices(ctx context.Context) (map[FuelType]float64, error)
}

// StaticPriceSource serves the built-in price table.
type StaticPriceSource struct{}

// Prices returns a copy of the built-in price table.
func (StaticPriceSource) Prices(ctx context.Context) (map[FuelType]float64, error) {
	prices := make(map[FuelType]float64, len(defaultPrices))
	for fuel, price := range defaultPrices {
		prices[fuel] = price
	}
	return prices, nil
}

// PriceServiceConfig holds configuration for the price service.
type PriceServiceConfig struct {
	// Source provides prices (default: StaticPriceSource).
	Source PriceSource

	// Logger for service operations.
	Logger zerolog.Logger

	// TTL is how long prices stay cached (default: DefaultPriceTTL).
	TTL time.Duration
}

// PriceService provides fuel prices with TTL caching, so a live source
// can replace the static table without changing callers.
type PriceService struct {
	source PriceSource
	logger zerolog.Logger
	cache  *cache.Store[string, map[FuelType]float64]
}

const priceCacheKey = "prices"

// NewPriceService creates a new fuel price service.
func NewPriceService(cfg PriceServiceConfig) *PriceService {
	source := cfg.Source
	if source == nil {
		source = StaticPriceSource{}
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultPriceTTL
	}

	return &PriceService{
		source: source,
		logger: cfg.Logger,
		cache:  cache.NewStore[string, map[FuelType]float64](ttl),
	}
}

// Cache exposes the underlying store for janitor registration.
func (s *PriceService) Cache() *cache.Store[string, map[FuelType]float64] {
	return s.cache
}

// Prices returns all current fuel prices.
func (s *PriceService) Prices(ctx context.Context) (map[FuelType]float64, error) {
	return s.cache.GetOrCompute(priceCacheKey, func() (map[FuelType]float64, error) {
		s.logger.Debug().Msg("refreshing fuel prices")
		return s.source.Prices(ctx)
	})
}

// Price returns the current price for one fuel type.
func (s *PriceService) Price(ctx context.Context, fuel FuelType) (float64, error) {
	if !fuel.Valid() {
		return 0, fmt.Errorf("%q: %w", fuel, ErrUnknownFuelType)
	}

	prices, err := s.Prices(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching fuel prices: %w", err)
	}

	price, ok := prices[fuel]
	if !ok {
		return 0, fmt.Errorf("%q: %w", fuel, ErrUnknownFuelType)
	}
	return price, nil
}
