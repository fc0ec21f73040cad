package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/clipfetch/internal/tools"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// processJob runs one job end to end and converts every failure mode into
// an Outcome. Nothing escapes as a panic or error: one bad video must not
// take down the batch.
func (w *Worker) processJob(ctx context.Context, job domain.Job) (o domain.Outcome) {
	started := time.Now()

	o = domain.Outcome{VideoID: job.VideoID, Status: domain.StatusFailure}
	defer func() {
		if r := recover(); r != nil {
			o.Status = domain.StatusFailure
			o.Detail = fmt.Sprintf("unexpected panic: %v", r)
			w.logger.Error("Job executor panicked",
				slog.String("video_id", job.VideoID),
				slog.Any("panic", r),
			)
		}
		o.Elapsed = time.Since(started)
	}()

	destPath := filepath.Join(w.outputDir, job.DestName+"."+w.videoFormat)

	if w.skipExisting && fileNonEmpty(destPath) {
		o.Status = domain.StatusSuccess
		o.Detail = "skipped: destination exists"
		w.logger.Info("Destination already exists, skipping",
			slog.String("video_id", job.VideoID),
			slog.String("dest", destPath),
		)
		return o
	}

	tmpPath := filepath.Join(os.TempDir(), "clipfetch-"+uuid.New().String()+".media")
	defer os.Remove(tmpPath)

	if err := w.runTool(ctx, func(toolCtx context.Context) error {
		return w.downloader.Download(toolCtx, job.VideoID, tmpPath)
	}); err != nil {
		o.Detail = failureDetail(err)
		return o
	}

	if err := w.runTool(ctx, func(toolCtx context.Context) error {
		return w.transcoder.Transcode(toolCtx, tools.TranscodeRequest{
			InputPath:  tmpPath,
			OutputPath: destPath,
			Start:      job.Start,
			End:        job.End,
			Trimmed:    job.Trimmed,
		})
	}); err != nil {
		// Never leave a partial destination behind a failure outcome.
		os.Remove(destPath)
		o.Detail = failureDetail(err)
		return o
	}

	if !fileNonEmpty(destPath) {
		os.Remove(destPath)
		o.Detail = domain.ErrEmptyOutput.Error()
		return o
	}

	o.Status = domain.StatusSuccess
	return o
}

// runTool applies the configured per-invocation timeout around one
// external tool call.
func (w *Worker) runTool(ctx context.Context, invoke func(context.Context) error) error {
	if w.toolTimeout > 0 {
		toolCtx, cancel := context.WithTimeout(ctx, w.toolTimeout)
		defer cancel()
		return invoke(toolCtx)
	}
	return invoke(ctx)
}

// failureDetail maps an executor error onto the outcome detail text.
func failureDetail(err error) string {
	switch {
	case errors.Is(err, domain.ErrToolTimeout):
		return "timeout: " + err.Error()
	case errors.Is(err, context.Canceled):
		return domain.ErrRunCanceled.Error()
	default:
		return err.Error()
	}
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
