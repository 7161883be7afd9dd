package batch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/pkg/metrics"
)

// job is one source queued for conversion
type job struct {
	index  int
	source Source
}

// outcome is the result of one job
type outcome struct {
	index int
	item  converter.Item
	err   error
}

// processFunc converts a single job. Per-item failures go in outcome.err.
type processFunc func(ctx context.Context, j job) outcome

// workerPool runs jobs on a fixed number of worker goroutines
type workerPool struct {
	workers int
	process processFunc
	logger  *slog.Logger
}

// newWorkerPool creates a worker pool with the specified number of workers
func newWorkerPool(workers int, process processFunc, logger *slog.Logger) *workerPool {
	if workers < 1 {
		workers = 1
	}
	return &workerPool{
		workers: workers,
		process: process,
		logger:  logger,
	}
}

// run feeds sources to the workers in order and hands every outcome to
// collect, in completion order, from the calling goroutine. It returns the
// context error if the run was cancelled.
func (p *workerPool) run(ctx context.Context, sources []Source, collect func(outcome)) error {
	workers := p.workers
	if workers > len(sources) {
		workers = len(sources)
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job, workers*2) // Buffered channel
	results := make(chan outcome, workers*2)

	g.Go(func() error {
		defer close(jobs)
		for i, src := range sources {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- job{index: i, source: src}:
			}
		}
		return nil
	})

	p.logger.Debug("starting worker pool", "workers", workers)

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return p.worker(ctx, id, jobs, results)
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		collect(out)
	}

	err := g.Wait()
	p.logger.Debug("worker pool stopped")
	return err
}

// worker processes jobs from the job channel
func (p *workerPool) worker(ctx context.Context, id int, jobs <-chan job, results chan<- outcome) error {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("worker stopping", "worker", id, "error", err)
			return err
		}

		metrics.WorkerStarted()
		out := p.process(ctx, j)
		metrics.WorkerFinished()

		results <- out
	}
	return nil
}
