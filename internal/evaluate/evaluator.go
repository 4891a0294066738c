package evaluate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/internal/solver"
)

const (
	// AverageSpeedKmh is the assumed urban driving speed.
	AverageSpeedKmh = 40.0

	// StopServiceMinutes is the handling time added per delivery stop.
	StopServiceMinutes = 5.0

	// DefaultEfficiencyKmPerLiter is used when the vehicle profile does
	// not specify consumption.
	DefaultEfficiencyKmPerLiter = 8.0
)

// VehicleProfile describes the vehicle driving the tour.
type VehicleProfile struct {
	// Fuel is the vehicle's fuel type (default: FuelGasoline).
	Fuel FuelType

	// EfficiencyKmPerLiter is fuel efficiency
	// (default: DefaultEfficiencyKmPerLiter).
	EfficiencyKmPerLiter float64

	// FuelPricePerUnit, when positive, is used for the cost estimate
	// instead of the current price table.
	FuelPricePerUnit float64
}

// Summary holds the operational figures for a solved tour.
type Summary struct {
	// DistanceKm is the total tour length in kilometers.
	DistanceKm float64 `json:"distance_km"`

	// DurationMinutes is estimated driving plus stop handling time.
	DurationMinutes float64 `json:"duration_minutes"`

	// Stops is the number of delivery stops, excluding the depot.
	Stops int `json:"stops"`

	// FuelConsumed is estimated fuel consumption in FuelUnit.
	FuelConsumed float64 `json:"fuel_consumed"`

	// FuelUnit is the consumption unit, liters for liquid fuels and
	// cubic meters for CNG.
	FuelUnit string `json:"fuel_unit"`

	// FuelCost is estimated fuel spend in BRL.
	FuelCost float64 `json:"fuel_cost"`

	// FuelPricePerUnit is the price used for the cost estimate.
	FuelPricePerUnit float64 `json:"fuel_price_per_unit"`

	// MapLink is a Google Maps directions link for the tour.
	MapLink string `json:"map_link"`
}

// EvaluatorConfig holds configuration for the evaluator.
type EvaluatorConfig struct {
	// Prices provides fuel prices.
	Prices *PriceService

	// Logger for evaluator operations.
	Logger zerolog.Logger
}

// Evaluator computes route summaries from solved tours.
type Evaluator struct {
	prices *PriceService
	logger zerolog.Logger
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	prices := cfg.Prices
	if prices == nil {
		prices = NewPriceService(PriceServiceConfig{Logger: cfg.Logger})
	}

	return &Evaluator{
		prices: prices,
		logger: cfg.Logger,
	}
}

// Evaluate computes the operational summary for a solved tour. Duration
// assumes AverageSpeedKmh plus StopServiceMinutes per stop; fuel figures
// use the vehicle profile and current prices, unless the profile carries
// a price override.
func (e *Evaluator) Evaluate(ctx context.Context, m matrix.Matrix, points []geocode.Point, tour []int, vehicle VehicleProfile) (Summary, error) {
	if err := solver.ValidateTour(tour, m.Size()); err != nil {
		return Summary{}, fmt.Errorf("evaluating tour: %w", err)
	}
	if len(points) != m.Size() {
		return Summary{}, fmt.Errorf("have %d points for a %d point matrix: %w",
			len(points), m.Size(), solver.ErrInvalidTour)
	}

	fuel := vehicle.Fuel
	if fuel == "" {
		fuel = FuelGasoline
	}
	efficiency := vehicle.EfficiencyKmPerLiter
	if efficiency <= 0 {
		efficiency = DefaultEfficiencyKmPerLiter
	}

	price := vehicle.FuelPricePerUnit
	if price <= 0 {
		var err error
		price, err = e.prices.Price(ctx, fuel)
		if err != nil {
			return Summary{}, err
		}
	}

	distanceKm := float64(solver.TourCost(m, tour)) / 1000.0
	stops := len(tour) - 2
	if stops < 0 {
		stops = 0
	}

	consumed := distanceKm / efficiency
	summary := Summary{
		DistanceKm:       distanceKm,
		DurationMinutes:  distanceKm/AverageSpeedKmh*60 + StopServiceMinutes*float64(stops),
		Stops:            stops,
		FuelConsumed:     consumed,
		FuelUnit:         fuel.Unit(),
		FuelCost:         consumed * price,
		FuelPricePerUnit: price,
		MapLink:          MapLink(points, tour),
	}

	e.logger.Debug().
		Float64("distance_km", summary.DistanceKm).
		Float64("duration_minutes", summary.DurationMinutes).
		Int("stops", summary.Stops).
		Str("fuel", string(fuel)).
		Float64("fuel_cost", summary.FuelCost).
		Msg("evaluated tour")

	return summary, nil
}
