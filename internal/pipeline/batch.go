package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/stacwalk/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent processing of multiple input URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each input.
	// We use a factory so each run gets a fresh pipeline instance and
	// per-catalog configuration can be applied based on the input URL.
	pipelineFactory func(input string) *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed extraction reports.
	// Access is synchronized via mutex.
	results []*model.ExtractReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each input to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// runs and allows per-catalog customization based on the input URL.
func NewBatchProcessor(pipelineFactory func(input string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.ExtractReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch extracts from multiple input URLs concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each input gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for inputs that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []string) ([]*model.ExtractReport, error) {
	bp.logger.Info("starting batch processing",
		"total_inputs", len(inputs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.ExtractReport, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("extracting",
				"url", input,
				"index", i+1,
				"total", len(inputs),
			)

			// Create report for this input
			report := model.NewExtractReport(input)

			// Create and execute pipeline
			pipeline := bp.pipelineFactory(input)
			err := pipeline.Execute(ctx, report)

			// Store result regardless of error
			// The report contains error information if the run failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("extraction failed",
					"url", input,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other runs
				// The error is recorded in the report
				return nil
			}

			bp.logger.Info("extraction completed",
				"url", input,
			)

			return nil
		})
	}

	// Wait for all runs to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_inputs", len(inputs),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback extracts from multiple inputs and calls a
// callback for each completed run. This is useful for streaming results.
//
// The callback receives the report and the index of the input in the
// original slice. The callback is called from the goroutine that completed
// the run, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	inputs []string,
	callback func(report *model.ExtractReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_inputs", len(inputs),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewExtractReport(input)
			pipeline := bp.pipelineFactory(input)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			// Call the callback with the result
			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
