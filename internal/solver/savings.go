package solver

import (
	"context"
	"sort"
	"time"

	"github.com/optiroute/optiroute/internal/matrix"
)

// saving records the cost saved by serving two points on one leg instead
// of returning to the depot between them.
type saving struct {
	i, j  int
	value int
}

// savingsTour builds a closed tour with the Clarke-Wright savings
// heuristic. Each point starts as its own depot round trip; pairs are
// merged in descending savings order while both remain route endpoints.
// Returns a nil tour when the deadline expires mid-build.
func savingsTour(ctx context.Context, m matrix.Matrix, deadline time.Time) []int {
	n := m.Size()

	savings := make([]saving, 0, (n-1)*(n-2)/2)
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			savings = append(savings, saving{
				i:     i,
				j:     j,
				value: m[Depot][i] + m[Depot][j] - m[i][j],
			})
		}
	}
	sort.Slice(savings, func(a, b int) bool {
		if savings[a].value != savings[b].value {
			return savings[a].value > savings[b].value
		}
		// Deterministic order among equal savings.
		if savings[a].i != savings[b].i {
			return savings[a].i < savings[b].i
		}
		return savings[a].j < savings[b].j
	})

	// routeOf maps a point to its route; routes are only ever extended at
	// their endpoints.
	routes := make([][]int, 0, n-1)
	routeOf := make([]int, n)
	for p := 1; p < n; p++ {
		routeOf[p] = len(routes)
		routes = append(routes, []int{p})
	}

	for step, s := range savings {
		if step&255 == 0 && expired(ctx, deadline) {
			return nil
		}

		ri, rj := routeOf[s.i], routeOf[s.j]
		if ri == rj {
			continue
		}
		a, b := routes[ri], routes[rj]
		if !isEndpoint(a, s.i) || !isEndpoint(b, s.j) {
			continue
		}

		// Orient both routes so the merge joins s.i's end to s.j's start.
		if a[0] == s.i {
			reverse(a)
		}
		if b[len(b)-1] == s.j {
			reverse(b)
		}

		merged := append(a, b...)
		routes[ri] = merged
		routes[rj] = nil
		for _, p := range b {
			routeOf[p] = ri
		}
	}

	tour := make([]int, 0, n+1)
	tour = append(tour, Depot)
	for _, r := range routes {
		tour = append(tour, r...)
	}
	return append(tour, Depot)
}

func isEndpoint(route []int, p int) bool {
	return route[0] == p || route[len(route)-1] == p
}

func reverse(route []int) {
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
}
