package blend

import (
	"context"
	"runtime"
	"sync"
)

// FindOptimalWeightConcurrent is FindOptimalWeight with the grid evaluated by
// a pool of workers. Each worker writes into its own grid index and the
// minimum is reduced afterwards in ascending weight order, so the result
// (tie-break included) is identical to the sequential search.
//
// workers <= 0 uses runtime.NumCPU().
func (o *Optimizer) FindOptimalWeightConcurrent(ctx context.Context, steps, workers int) (Result, error) {
	grid, err := weightGrid(steps)
	if err != nil {
		return Result{}, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(grid) {
		workers = len(grid)
	}

	variances := make([]float64, len(grid))
	indices := make(chan int)

	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				variances[i] = o.Variance(grid[i])
			}
		}()
	}

feed:
	for i := range grid {
		select {
		case <-ctx.Done():
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return pickMinimum(grid, variances), nil
}
