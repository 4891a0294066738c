package solver

import (
	"context"
	"time"

	"github.com/optiroute/optiroute/internal/matrix"
)

// twoOptPolish improves a closed tour with first-improvement 2-opt,
// reversing segments while any reversal shortens the tour. The depot
// endpoints never move. Stops at a local optimum or when the deadline
// expires, returning the best tour found so far.
func twoOptPolish(ctx context.Context, m matrix.Matrix, tour []int, deadline time.Time) []int {
	n := len(tour) - 1
	if n < 4 {
		return tour
	}

	improved := true
	step := 0
	for improved {
		improved = false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				step++
				if step&1023 == 0 && expired(ctx, deadline) {
					return tour
				}

				a, b := tour[i-1], tour[i]
				c, d := tour[k], tour[k+1]
				delta := m[a][c] + m[b][d] - m[a][b] - m[c][d]
				if delta < 0 {
					reverse(tour[i : k+1])
					improved = true
				}
			}
		}
	}

	return tour
}
