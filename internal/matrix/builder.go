package matrix

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/streetgraph"
	"github.com/optiroute/optiroute/pkg/geodist"
)

const (
	// FullComputeThreshold is the largest point count for which every
	// ordered pair is computed. Above it only the upper triangle is
	// computed and mirrored, halving street network queries at the cost
	// of assuming symmetric travel.
	FullComputeThreshold = 4

	// DefaultConcurrency bounds concurrent pair computations.
	DefaultConcurrency = 4
)

// Source identifies which distance metric produced a matrix.
type Source string

// Matrix sources.
const (
	// SourceStreet means every pair used street network routing.
	SourceStreet Source = "street"

	// SourceHaversine means every pair used great-circle distance.
	SourceHaversine Source = "haversine"

	// SourceMixed means some pairs fell back to great-circle distance.
	SourceMixed Source = "mixed"
)

// BuilderConfig holds configuration for the matrix builder.
type BuilderConfig struct {
	// Networks provides street networks. If nil, every pair uses
	// great-circle distance.
	Networks *streetgraph.Service

	// Logger for builder operations.
	Logger zerolog.Logger

	// Concurrency bounds concurrent pair computations
	// (default: DefaultConcurrency).
	Concurrency int
}

// Builder computes travel cost matrices for point lists.
type Builder struct {
	networks    *streetgraph.Service
	logger      zerolog.Logger
	concurrency int
}

// NewBuilder creates a new matrix builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Builder{
		networks:    cfg.Networks,
		logger:      cfg.Logger,
		concurrency: concurrency,
	}
}

// Build computes the pairwise travel cost matrix for the given points.
// The street network covering the points' centroid prices each pair; a
// pair whose routing fails falls back to great-circle distance, and a
// missing network degrades the whole matrix to great-circle distances.
// Build never fails once at least one point is given.
func (b *Builder) Build(ctx context.Context, points []geocode.Point) (Matrix, Source, error) {
	n := len(points)
	if n == 0 {
		return nil, "", ErrNoPoints
	}

	m := New(n)
	if n == 1 {
		return m, SourceStreet, nil
	}

	graph := b.network(ctx, points)
	if graph == nil {
		b.fillHaversine(m, points)
		return m, SourceHaversine, nil
	}

	start := time.Now()
	fallbacks := b.fillFromGraph(ctx, m, graph, points)

	source := SourceStreet
	totalPairs := n * (n - 1) / 2
	if n <= FullComputeThreshold {
		totalPairs = n * (n - 1)
	}
	switch {
	case fallbacks == totalPairs:
		source = SourceHaversine
	case fallbacks > 0:
		source = SourceMixed
	}

	b.logger.Debug().
		Int("points", n).
		Int("fallback_pairs", fallbacks).
		Str("source", string(source)).
		Dur("elapsed", time.Since(start)).
		Msg("built cost matrix")

	return m, source, nil
}

// network fetches the street network around the points' centroid, or nil
// when street routing is unavailable.
func (b *Builder) network(ctx context.Context, points []geocode.Point) *streetgraph.Graph {
	if b.networks == nil {
		return nil
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	centerLat := sumLat / float64(len(points))
	centerLon := sumLon / float64(len(points))

	graph, err := b.networks.Network(ctx, centerLat, centerLon)
	if err != nil {
		b.logger.Warn().Err(err).
			Float64("center_lat", centerLat).
			Float64("center_lon", centerLon).
			Msg("street network unavailable, using great-circle distances")
		return nil
	}
	return graph
}

// fillFromGraph prices pairs on the street network, mirroring the upper
// triangle for larger point counts. Returns the number of pairs that fell
// back to great-circle distance.
func (b *Builder) fillFromGraph(ctx context.Context, m Matrix, graph *streetgraph.Graph, points []geocode.Point) int {
	n := len(points)
	full := n <= FullComputeThreshold

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
			if full {
				pairs = append(pairs, pair{j, i})
			}
		}
	}

	fallbacks := make([]bool, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for idx, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				fallbacks[idx] = true
				m[p.i][p.j] = haversinePair(points, p.i, p.j)
				return nil
			}
			dist, err := streetgraph.PathMeters(graph,
				points[p.i].Lat, points[p.i].Lon,
				points[p.j].Lat, points[p.j].Lon)
			if err != nil {
				fallbacks[idx] = true
				m[p.i][p.j] = haversinePair(points, p.i, p.j)
				return nil
			}
			m[p.i][p.j] = int(dist)
			return nil
		})
	}
	// Pair workers never return errors; degradation is per pair.
	_ = g.Wait()

	if !full {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				m[j][i] = m[i][j]
			}
		}
	}

	count := 0
	for _, f := range fallbacks {
		if f {
			count++
		}
	}
	return count
}

// fillHaversine prices every pair by great-circle distance.
func (b *Builder) fillHaversine(m Matrix, points []geocode.Point) {
	n := len(points)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := haversinePair(points, i, j)
			m[i][j] = d
			m[j][i] = d
		}
	}
}

func haversinePair(points []geocode.Point, i, j int) int {
	return geodist.HaversineMetersInt(
		points[i].Lat, points[i].Lon,
		points[j].Lat, points[j].Lon,
	)
}
