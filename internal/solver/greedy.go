package solver

import "github.com/optiroute/optiroute/internal/matrix"

// GreedyTour builds a closed tour by always moving to the nearest
// unvisited point. Deterministic: ties resolve to the lowest index. Used
// as the fallback when the primary heuristics run out of time.
func GreedyTour(m matrix.Matrix) []int {
	n := m.Size()
	tour := make([]int, 0, n+1)
	tour = append(tour, Depot)

	visited := make([]bool, n)
	visited[Depot] = true
	current := Depot

	for len(tour) < n {
		next := -1
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			if next == -1 || m[current][candidate] < m[current][next] {
				next = candidate
			}
		}
		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	return append(tour, Depot)
}
