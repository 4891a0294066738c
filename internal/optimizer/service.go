package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/internal/solver"
)

// ServiceConfig holds the collaborators of the optimizer.
type ServiceConfig struct {
	// Geocoder resolves addresses to coordinates.
	Geocoder *geocode.Service

	// Matrices builds pairwise cost matrices.
	Matrices *matrix.Builder

	// Solver orders the stops.
	Solver *solver.Solver

	// Evaluator computes the route summary.
	Evaluator *evaluate.Evaluator

	// Janitor sweeps expired cache entries; ticked once per request.
	Janitor *cache.Janitor

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service runs route optimizations end to end.
type Service struct {
	geocoder  *geocode.Service
	matrices  *matrix.Builder
	solver    *solver.Solver
	evaluator *evaluate.Evaluator
	janitor   *cache.Janitor
	logger    zerolog.Logger
}

// NewService creates a new optimizer service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		geocoder:  cfg.Geocoder,
		matrices:  cfg.Matrices,
		solver:    cfg.Solver,
		evaluator: cfg.Evaluator,
		janitor:   cfg.Janitor,
		logger:    cfg.Logger,
	}
}

// Optimize resolves every address, prices the pairwise travel costs,
// orders the stops into a closed depot tour and evaluates it. A failed
// address aborts the whole request with a geocode.BatchError; street
// network problems degrade to great-circle pricing instead of failing.
func (s *Service) Optimize(ctx context.Context, req Request) (*Result, error) {
	if s.janitor != nil {
		s.janitor.Tick()
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	addresses := make([]string, 0, len(req.Deliveries)+1)
	addresses = append(addresses, req.Origin)
	for _, d := range req.Deliveries {
		addresses = append(addresses, d.Address)
	}

	points, err := s.geocoder.GeocodeAll(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("resolving addresses: %w", err)
	}

	m, source, err := s.matrices.Build(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("building cost matrix: %w", err)
	}

	tour, err := s.solver.Solve(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("solving tour: %w", err)
	}

	summary, err := s.evaluator.Evaluate(ctx, m, points, tour, evaluate.VehicleProfile{
		Fuel:                 req.Vehicle.Fuel,
		EfficiencyKmPerLiter: req.Vehicle.EfficiencyKmPerLiter,
		FuelPricePerUnit:     req.Vehicle.FuelPricePerUnit,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating tour: %w", err)
	}

	result := &Result{
		Origin: Stop{
			Sequence: 0,
			Address:  req.Origin,
			Point:    points[0],
		},
		Stops:        make([]Stop, 0, len(req.Deliveries)),
		Summary:      summary,
		MatrixSource: source,
		SolvedAt:     time.Now().UTC(),
	}

	// tour[0] and tour[len-1] are the depot; everything between is a
	// delivery whose request index is its tour value minus one.
	for seq, idx := range tour[1 : len(tour)-1] {
		delivery := req.Deliveries[idx-1]
		result.Stops = append(result.Stops, Stop{
			Sequence: seq + 1,
			Address:  delivery.Address,
			Point:    points[idx],
			Products: delivery.Products,
		})
	}

	s.logger.Info().
		Int("deliveries", len(req.Deliveries)).
		Float64("distance_km", summary.DistanceKm).
		Str("matrix_source", string(source)).
		Dur("elapsed", time.Since(start)).
		Msg("route optimized")

	return result, nil
}
