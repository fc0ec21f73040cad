package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/clipfetch/internal/tools"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// OutcomeRecorder receives exactly one Outcome per dispatched job.
// It must be safe for concurrent use by the worker pool.
type OutcomeRecorder interface {
	Record(o domain.Outcome) error
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	RunID        string // generated when empty
	Downloader   tools.Downloader
	Transcoder   tools.Transcoder
	Recorder     OutcomeRecorder
	OutputDir    string
	VideoFormat  string
	Concurrency  int
	ToolTimeout  time.Duration
	SkipExisting bool
}

// Worker fans jobs out across a bounded pool of goroutines, each running
// the download+transcode executor and reporting one outcome per job.
type Worker struct {
	logger       *slog.Logger
	downloader   tools.Downloader
	transcoder   tools.Transcoder
	recorder     OutcomeRecorder
	outputDir    string
	videoFormat  string
	concurrency  int
	toolTimeout  time.Duration
	skipExisting bool
	runID        string
	wg           sync.WaitGroup
	jobsChan     chan domain.Job
}

// New creates a new worker instance
func New(cfg *Config) *Worker {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	return &Worker{
		logger:       cfg.Logger,
		downloader:   cfg.Downloader,
		transcoder:   cfg.Transcoder,
		recorder:     cfg.Recorder,
		outputDir:    cfg.OutputDir,
		videoFormat:  cfg.VideoFormat,
		concurrency:  cfg.Concurrency,
		toolTimeout:  cfg.ToolTimeout,
		skipExisting: cfg.SkipExisting,
		runID:        runID,
		jobsChan:     make(chan domain.Job),
	}
}

// RunID returns the identifier assigned to this invocation.
func (w *Worker) RunID() string {
	return w.runID
}

// Run dispatches the job list to the worker pool and blocks until every
// job has produced an outcome. Cancellation of ctx abandons in-flight
// tools but still records an outcome for every job, so the run always
// completes with one outcome per manifest row.
func (w *Worker) Run(ctx context.Context, jobs []domain.Job) {
	w.logger.Info("Starting run",
		slog.String("run_id", w.runID),
		slog.Int("jobs", len(jobs)),
		slog.Int("concurrency", w.concurrency),
	)

	w.spawnWorkerPool(ctx)

	for i, job := range jobs {
		select {
		case w.jobsChan <- job:
		case <-ctx.Done():
			w.logger.Warn("Run canceled during dispatch",
				slog.String("run_id", w.runID),
				slog.Int("remaining", len(jobs)-i),
			)
			// Jobs never handed to a worker still owe an outcome.
			for _, skipped := range jobs[i:] {
				w.recordCanceled(skipped)
			}
			close(w.jobsChan)
			w.wg.Wait()
			return
		}
	}

	close(w.jobsChan)
	w.wg.Wait()

	w.logger.Info("Run finished", slog.String("run_id", w.runID))
}

// recordCanceled emits the FAILURE outcome for a job abandoned by shutdown.
func (w *Worker) recordCanceled(job domain.Job) {
	w.record(domain.Outcome{
		VideoID: job.VideoID,
		Status:  domain.StatusFailure,
		Detail:  domain.ErrRunCanceled.Error(),
	})
}

func (w *Worker) record(o domain.Outcome) {
	if err := w.recorder.Record(o); err != nil {
		w.logger.Error("Failed to record outcome",
			slog.String("video_id", o.VideoID),
			slog.Any("error", err),
		)
	}
}
