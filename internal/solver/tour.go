// Package solver orders delivery stops into a closed tour that starts and
// ends at the depot, minimizing travel cost over a cost matrix.
package solver

import (
	"errors"
	"fmt"

	"github.com/optiroute/optiroute/internal/matrix"
)

// Common solver errors.
var (
	// ErrEmptyMatrix indicates a zero-size cost matrix.
	ErrEmptyMatrix = errors.New("cost matrix is empty")

	// ErrInvalidTour indicates a tour that is not a closed depot cycle.
	ErrInvalidTour = errors.New("invalid tour")
)

// Depot is the index of the starting point. Tours always begin and end
// here.
const Depot = 0

// TourCost sums the matrix costs along a closed tour.
func TourCost(m matrix.Matrix, tour []int) int {
	total := 0
	for i := 1; i < len(tour); i++ {
		total += m[tour[i-1]][tour[i]]
	}
	return total
}

// ValidateTour checks that tour is a closed cycle over all n points,
// starting and ending at the depot and visiting every point exactly once.
func ValidateTour(tour []int, n int) error {
	if len(tour) != n+1 {
		return fmt.Errorf("tour has %d entries, want %d: %w", len(tour), n+1, ErrInvalidTour)
	}
	if tour[0] != Depot || tour[n] != Depot {
		return fmt.Errorf("tour must start and end at the depot: %w", ErrInvalidTour)
	}

	seen := make([]bool, n)
	for _, v := range tour[:n] {
		if v < 0 || v >= n {
			return fmt.Errorf("point %d out of range: %w", v, ErrInvalidTour)
		}
		if seen[v] {
			return fmt.Errorf("point %d visited twice: %w", v, ErrInvalidTour)
		}
		seen[v] = true
	}
	return nil
}
