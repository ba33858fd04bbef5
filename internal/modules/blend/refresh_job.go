package blend

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/blendopt/internal/modules/prices"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefreshJob reloads a price source, reruns the grid search and stores the
// outcome in a ResultCache.
type RefreshJob struct {
	loader  prices.Loader
	cache   *ResultCache
	steps   int
	workers int
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewRefreshJob creates a refresh job. workers == 0 runs the sequential search.
func NewRefreshJob(loader prices.Loader, cache *ResultCache, steps, workers int, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		loader:  loader,
		cache:   cache,
		steps:   steps,
		workers: workers,
		timeout: 2 * time.Minute,
		log:     log.With().Str("job", "blend_refresh").Logger(),
		now:     time.Now,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string { return "blend_refresh" }

// Run executes one refresh
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.RunContext(ctx)
	return err
}

// RunContext executes one refresh and returns the stored snapshot
func (j *RefreshJob) RunContext(ctx context.Context) (Snapshot, error) {
	runID := uuid.New().String()
	log := j.log.With().Str("run_id", runID).Str("source", j.loader.Name()).Logger()

	series, err := j.loader.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load prices: %w", err)
	}

	result, err := Run(ctx, series.A, series.B, j.steps, j.workers)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		RunID:      runID,
		Source:     j.loader.Name(),
		Steps:      j.steps,
		Periods:    series.Len(),
		Result:     result,
		ComputedAt: j.now().UTC(),
	}
	j.cache.Store(snapshot)

	log.Info().
		Float64("weight", result.Weight).
		Float64("min_variance", result.MinVariance).
		Int("periods", snapshot.Periods).
		Msg("Blend refreshed")

	return snapshot, nil
}

// Run constructs an optimizer over the two series and searches the grid,
// concurrently when workers > 0.
func Run(ctx context.Context, pricesA, pricesB []float64, steps, workers int) (Result, error) {
	optimizer, err := NewOptimizer(pricesA, pricesB)
	if err != nil {
		return Result{}, err
	}
	if workers > 0 {
		return optimizer.FindOptimalWeightConcurrent(ctx, steps, workers)
	}
	return optimizer.FindOptimalWeight(steps)
}
