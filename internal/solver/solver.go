package solver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/matrix"
)

const (
	// InsertionThreshold is the largest point count solved with cheapest
	// insertion. Larger instances use the savings heuristic.
	InsertionThreshold = 4

	// DefaultSmallTimeBudget bounds solving small instances.
	DefaultSmallTimeBudget = time.Second

	// DefaultLargeTimeBudget bounds solving instances above the
	// threshold.
	DefaultLargeTimeBudget = 5 * time.Second
)

// Config holds configuration for the solver.
type Config struct {
	// Logger for solver operations.
	Logger zerolog.Logger

	// SmallTimeBudget bounds instances up to InsertionThreshold points
	// (default: DefaultSmallTimeBudget).
	SmallTimeBudget time.Duration

	// LargeTimeBudget bounds larger instances
	// (default: DefaultLargeTimeBudget).
	LargeTimeBudget time.Duration
}

// Solver computes closed depot tours over cost matrices.
type Solver struct {
	logger          zerolog.Logger
	smallTimeBudget time.Duration
	largeTimeBudget time.Duration
}

// New creates a new solver.
func New(cfg Config) *Solver {
	small := cfg.SmallTimeBudget
	if small == 0 {
		small = DefaultSmallTimeBudget
	}
	large := cfg.LargeTimeBudget
	if large == 0 {
		large = DefaultLargeTimeBudget
	}

	return &Solver{
		logger:          cfg.Logger,
		smallTimeBudget: small,
		largeTimeBudget: large,
	}
}

// Solve returns a closed tour visiting every point in the matrix once,
// starting and ending at the depot. Instances up to InsertionThreshold
// points use cheapest insertion, larger ones the savings heuristic, both
// polished with 2-opt inside the time budget. When the budget runs out
// the greedy nearest-neighbor tour is returned instead, so Solve degrades
// rather than fails on hard instances.
func (s *Solver) Solve(ctx context.Context, m matrix.Matrix) ([]int, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := m.Size()
	switch n {
	case 0:
		return nil, ErrEmptyMatrix
	case 1:
		return []int{Depot, Depot}, nil
	case 2:
		return []int{Depot, 1, Depot}, nil
	}

	budget := s.largeTimeBudget
	method := "savings"
	if n <= InsertionThreshold {
		budget = s.smallTimeBudget
		method = "insertion"
	}

	start := time.Now()
	deadline := start.Add(budget)

	var tour []int
	if n <= InsertionThreshold {
		tour = cheapestInsertionTour(ctx, m, deadline)
	} else {
		tour = savingsTour(ctx, m, deadline)
	}

	if tour == nil {
		tour = GreedyTour(m)
		method = "greedy"
		s.logger.Warn().
			Int("points", n).
			Dur("budget", budget).
			Msg("time budget exhausted, using greedy tour")
	} else {
		tour = twoOptPolish(ctx, m, tour, deadline)
	}

	if err := ValidateTour(tour, n); err != nil {
		// A heuristic bug must not surface a broken tour; the greedy
		// construction is always valid.
		s.logger.Error().Err(err).
			Int("points", n).
			Str("method", method).
			Msg("heuristic produced invalid tour, using greedy tour")
		tour = GreedyTour(m)
		method = "greedy"
	}

	s.logger.Debug().
		Int("points", n).
		Str("method", method).
		Int("cost_meters", TourCost(m, tour)).
		Dur("elapsed", time.Since(start)).
		Msg("solved tour")

	return tour, nil
}
