package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/streetgraph"
)

// PrefetchJob warms the street network cache for configured regions so
// optimization requests find their grid cells already fetched.
type PrefetchJob struct {
	config   PrefetchConfig
	networks *streetgraph.Service
	logger   zerolog.Logger

	metrics *PrefetchMetrics
}

// PrefetchMetrics tracks prefetch job statistics.
type PrefetchMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	SuccessfulWarms int64
	FailedWarms     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// PrefetchJobConfig holds configuration for creating a PrefetchJob.
type PrefetchJobConfig struct {
	Config   PrefetchConfig
	Networks *streetgraph.Service
	Logger   zerolog.Logger
}

// NewPrefetchJob creates a new prefetch job processor.
func NewPrefetchJob(cfg PrefetchJobConfig) *PrefetchJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultPrefetchConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	return &PrefetchJob{
		config:   config,
		networks: cfg.Networks,
		logger:   cfg.Logger,
		metrics:  &PrefetchMetrics{},
	}
}

// PrefetchResult contains the result of a prefetch run.
type PrefetchResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []PrefetchError
}

// PrefetchError represents an error during prefetch.
type PrefetchError struct {
	Point Point
	Error string
}

// Run warms the network cache for all configured targets. Points that
// fall in the same grid cell share one fetch through the cache.
func (j *PrefetchJob) Run(ctx context.Context) *PrefetchResult {
	startTime := time.Now()

	points := j.dedupePoints()
	result := &PrefetchResult{
		StartTime:   startTime,
		TotalPoints: len(points),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting network prefetch job")

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan prefetchPointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.prefetchWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.err == nil {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, PrefetchError{
				Point: pr.point,
				Error: pr.err.Error(),
			})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("network prefetch job completed")

	return result
}

// dedupePoints drops points whose grid cells are already covered by an
// earlier point, preserving target order.
func (j *PrefetchJob) dedupePoints() []Point {
	seen := make(map[string]bool)
	var points []Point
	for _, p := range j.config.AllPoints() {
		key := streetgraph.CellKey(p.Lat, p.Lon)
		if seen[key] {
			continue
		}
		seen[key] = true
		points = append(points, p)
	}
	return points
}

type prefetchPointResult struct {
	point Point
	err   error
}

func (j *PrefetchJob) prefetchWorker(ctx context.Context, points <-chan Point, results chan<- prefetchPointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- prefetchPointResult{point: point, err: j.prefetchPoint(ctx, point)}
		}
	}
}

func (j *PrefetchJob) prefetchPoint(ctx context.Context, point Point) error {
	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.networks.Network(pointCtx, point.Lat, point.Lon)
	return err
}

func (j *PrefetchJob) updateMetrics(result *PrefetchResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulWarms += int64(result.Successful)
	j.metrics.FailedWarms += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *PrefetchJob) GetMetrics() PrefetchMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return PrefetchMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulWarms: j.metrics.SuccessfulWarms,
		FailedWarms:     j.metrics.FailedWarms,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}
