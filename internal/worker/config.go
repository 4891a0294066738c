// Package worker provides background job processing for OptiRoute.
package worker

import (
	"time"
)

// PrefetchTarget represents a geographic region whose street networks
// should be warmed ahead of optimization requests.
type PrefetchTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to warm. Typically depot
	// locations and dense delivery neighbourhoods.
	Points []Point

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// PrefetchConfig holds configuration for the street network prefetch job.
type PrefetchConfig struct {
	// Targets are the geographic regions to warm.
	// If empty, uses DefaultPrefetchTargets.
	Targets []PrefetchTarget

	// Concurrency is the number of concurrent network fetches.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each network fetch.
	// Default: 90 seconds
	Timeout time.Duration
}

// DefaultPrefetchConfig returns the default prefetch configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		Targets:     DefaultPrefetchTargets(),
		Concurrency: 3,
		Timeout:     90 * time.Second,
	}
}

// DefaultPrefetchTargets returns the default prefetch targets. Focuses
// on the metropolitan areas that produce most delivery volume.
func DefaultPrefetchTargets() []PrefetchTarget {
	return []PrefetchTarget{
		{
			Name:     "São Paulo",
			Priority: 1,
			Points: []Point{
				{Lat: -23.5505, Lon: -46.6333}, // Centro
				{Lat: -23.5986, Lon: -46.6907}, // Vila Olímpia
				{Lat: -23.4854, Lon: -46.5205}, // Guarulhos
			},
		},
		{
			Name:     "Rio de Janeiro",
			Priority: 1,
			Points: []Point{
				{Lat: -22.9068, Lon: -43.1729}, // Centro
				{Lat: -22.9711, Lon: -43.1822}, // Copacabana
			},
		},
		{
			Name:     "Belo Horizonte",
			Priority: 2,
			Points: []Point{
				{Lat: -19.9167, Lon: -43.9345},
			},
		},
		{
			Name:     "Curitiba",
			Priority: 2,
			Points: []Point{
				{Lat: -25.4284, Lon: -49.2733},
			},
		},
		{
			Name:     "Porto Alegre",
			Priority: 3,
			Points: []Point{
				{Lat: -30.0346, Lon: -51.2177},
			},
		},
		{
			Name:     "Campinas",
			Priority: 3,
			Points: []Point{
				{Lat: -22.9099, Lon: -47.0626},
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by priority.
func (c PrefetchConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to warm.
func (c PrefetchConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
