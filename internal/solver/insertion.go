package solver

import (
	"context"
	"time"

	"github.com/optiroute/optiroute/internal/matrix"
)

// cheapestInsertionTour builds a closed tour by repeatedly inserting the
// unvisited point whose best insertion position increases the tour cost
// the least. Returns a nil tour when the deadline expires mid-build.
func cheapestInsertionTour(ctx context.Context, m matrix.Matrix, deadline time.Time) []int {
	n := m.Size()

	// Seed with the depot and its nearest point.
	seed := -1
	for candidate := 1; candidate < n; candidate++ {
		if seed == -1 || m[Depot][candidate] < m[Depot][seed] {
			seed = candidate
		}
	}

	tour := []int{Depot, seed, Depot}
	visited := make([]bool, n)
	visited[Depot] = true
	visited[seed] = true

	for remaining := n - 2; remaining > 0; remaining-- {
		if expired(ctx, deadline) {
			return nil
		}

		bestPoint, bestPos, bestDelta := -1, -1, 0
		for candidate := 1; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			for pos := 1; pos < len(tour); pos++ {
				prev, next := tour[pos-1], tour[pos]
				delta := m[prev][candidate] + m[candidate][next] - m[prev][next]
				if bestPoint == -1 || delta < bestDelta {
					bestPoint, bestPos, bestDelta = candidate, pos, delta
				}
			}
		}

		tour = append(tour, 0)
		copy(tour[bestPos+1:], tour[bestPos:])
		tour[bestPos] = bestPoint
		visited[bestPoint] = true
	}

	return tour
}

// expired reports whether the context is done or the deadline has passed.
func expired(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && time.Now().After(deadline)
}
