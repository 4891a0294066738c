package solver

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/pkg/geodist"
)

func newTestSolver() *Solver {
	return New(Config{Logger: zerolog.Nop()})
}

// pointMatrix builds a symmetric matrix from planar coordinates so small
// instances have a known optimal tour.
func pointMatrix(coords [][2]float64) matrix.Matrix {
	n := len(coords)
	m := matrix.New(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := geodist.HaversineMetersInt(
				coords[i][0], coords[i][1],
				coords[j][0], coords[j][1])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

func TestSolveEmptyMatrix(t *testing.T) {
	if _, err := newTestSolver().Solve(context.Background(), matrix.New(0)); !errors.Is(err, ErrEmptyMatrix) {
		t.Errorf("expected ErrEmptyMatrix, got %v", err)
	}
}

func TestSolveTrivialSizes(t *testing.T) {
	s := newTestSolver()

	tour, err := s.Solve(context.Background(), matrix.New(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tour) != 2 || tour[0] != Depot || tour[1] != Depot {
		t.Errorf("expected depot round trip for one point, got %v", tour)
	}

	m := matrix.Matrix{{0, 100}, {100, 0}}
	tour, err = s.Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tour) != 3 || tour[1] != 1 {
		t.Errorf("expected [0 1 0], got %v", tour)
	}
}

func TestSolveInvalidMatrix(t *testing.T) {
	m := matrix.Matrix{{0, -1}, {1, 0}}
	if _, err := newTestSolver().Solve(context.Background(), m); !errors.Is(err, matrix.ErrNegativeCost) {
		t.Errorf("expected ErrNegativeCost, got %v", err)
	}
}

func TestSolveSmallKnownOptimum(t *testing.T) {
	// Four points on a rectangle; the optimal closed tour walks the
	// perimeter rather than crossing the diagonals.
	m := pointMatrix([][2]float64{
		{0.00, 0.00},
		{0.00, 0.10},
		{0.05, 0.10},
		{0.05, 0.00},
	})

	tour, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTour(tour, 4); err != nil {
		t.Fatalf("invalid tour: %v", err)
	}

	perimeter := m[0][1] + m[1][2] + m[2][3] + m[3][0]
	if cost := TourCost(m, tour); cost != perimeter {
		t.Errorf("expected perimeter tour cost %d, got %d for %v", perimeter, cost, tour)
	}
}

func TestSolveLargeInstanceIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	coords := make([][2]float64, 15)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 0.2, rng.Float64() * 0.2}
	}
	m := pointMatrix(coords)

	tour, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTour(tour, 15); err != nil {
		t.Fatalf("invalid tour: %v", err)
	}
}

func TestTwoOptNeverWorsens(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	coords := make([][2]float64, 12)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 0.2, rng.Float64() * 0.2}
	}
	m := pointMatrix(coords)

	initial := GreedyTour(m)
	before := TourCost(m, initial)

	polished := twoOptPolish(context.Background(), m, initial, time.Now().Add(time.Second))
	if err := ValidateTour(polished, 12); err != nil {
		t.Fatalf("invalid polished tour: %v", err)
	}
	if after := TourCost(m, polished); after > before {
		t.Errorf("2-opt worsened the tour: %d -> %d", before, after)
	}
}

func TestSolveDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	coords := make([][2]float64, 10)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 0.2, rng.Float64() * 0.2}
	}
	m := pointMatrix(coords)

	s := newTestSolver()
	first, err := s.Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("solver not deterministic: %v vs %v", first, second)
		}
	}
}

func TestSolveExhaustedBudgetFallsBackToGreedy(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	coords := make([][2]float64, 20)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 0.2, rng.Float64() * 0.2}
	}
	m := pointMatrix(coords)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired when solving starts

	tour, err := New(Config{Logger: zerolog.Nop()}).Solve(ctx, m)
	if err != nil {
		t.Fatalf("budget exhaustion must degrade, not fail: %v", err)
	}
	if err := ValidateTour(tour, 20); err != nil {
		t.Fatalf("invalid fallback tour: %v", err)
	}

	greedy := GreedyTour(m)
	for i := range tour {
		if tour[i] != greedy[i] {
			t.Fatalf("expected greedy fallback tour, got %v", tour)
		}
	}
}

func TestGreedyTourDeterministicTies(t *testing.T) {
	// All points equidistant; ties must resolve to the lowest index.
	m := matrix.Matrix{
		{0, 10, 10, 10},
		{10, 0, 10, 10},
		{10, 10, 0, 10},
		{10, 10, 10, 0},
	}
	tour := GreedyTour(m)
	want := []int{0, 1, 2, 3, 0}
	for i := range want {
		if tour[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tour)
		}
	}
}

func TestValidateTourRejectsBrokenTours(t *testing.T) {
	tests := []struct {
		name string
		tour []int
		n    int
	}{
		{"wrong length", []int{0, 1, 0}, 3},
		{"open tour", []int{0, 1, 2, 1}, 3},
		{"repeat visit", []int{0, 1, 1, 0}, 3},
		{"out of range", []int{0, 5, 2, 0}, 3},
		{"missing depot start", []int{1, 0, 2, 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateTour(tt.tour, tt.n); !errors.Is(err, ErrInvalidTour) {
				t.Errorf("expected ErrInvalidTour, got %v", err)
			}
		})
	}
}

func TestTwoOptUncrossesTour(t *testing.T) {
	// Square with a crossing tour 0-2-1-3-0; 2-opt must uncross it.
	m := pointMatrix([][2]float64{
		{0.00, 0.00},
		{0.00, 0.10},
		{0.10, 0.10},
		{0.10, 0.00},
	})

	crossed := []int{0, 2, 1, 3, 0}
	polished := twoOptPolish(context.Background(), m, crossed, time.Now().Add(time.Second))

	perimeter := m[0][1] + m[1][2] + m[2][3] + m[3][0]
	if cost := TourCost(m, polished); cost != perimeter {
		t.Errorf("expected uncrossed cost %d, got %d for %v", perimeter, cost, polished)
	}
}
