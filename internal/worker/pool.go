package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("run_id", w.runID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine.
// It drains jobsChan until the channel closes; a canceled context turns
// remaining jobs into canceled outcomes instead of dropping them, so the
// one-outcome-per-job invariant survives shutdown.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.runID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for job := range w.jobsChan {
		if ctx.Err() != nil {
			w.recordCanceled(job)
			continue
		}

		w.logger.Info("Worker picked up job",
			slog.String("worker_name", workerName),
			slog.String("video_id", job.VideoID),
			slog.Int("manifest_row", job.Row),
		)

		o := w.processJob(ctx, job)
		w.record(o)

		if o.Status == domain.StatusFailure {
			w.logger.Error("Job failed",
				slog.String("worker_name", workerName),
				slog.String("video_id", job.VideoID),
				slog.String("detail", o.Detail),
			)
		} else {
			w.logger.Info("Job completed",
				slog.String("worker_name", workerName),
				slog.String("video_id", job.VideoID),
				slog.Duration("elapsed", o.Elapsed),
			)
		}
	}

	w.logger.Debug("Worker goroutine stopping - jobsChan closed",
		slog.String("worker_name", workerName),
	)
}
