package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/clipfetch/internal/manifest"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// JobSource is the consumer-side surface of the queue client.
type JobSource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// RunQueue consumes jobs from RabbitMQ instead of a manifest file and
// processes them with the same executor. Each delivery is acked once its
// outcome is recorded; malformed payloads are nacked without requeue.
// Runs until ctx is canceled or the delivery channel closes.
func (w *Worker) RunQueue(ctx context.Context, source JobSource) error {
	deliveries, err := source.Consume(w.runID)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Queue mode started",
		slog.String("run_id", w.runID),
		slog.Int("concurrency", w.concurrency),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			w.consumeLoop(ctx, workerNum, deliveries)
		}(i)
	}

	wg.Wait()
	w.logger.Info("Queue mode stopped", slog.String("run_id", w.runID))
	return nil
}

// consumeLoop handles deliveries until the channel closes or ctx ends.
func (w *Worker) consumeLoop(ctx context.Context, workerNum int, deliveries <-chan amqp.Delivery) {
	workerName := fmt.Sprintf("%s-%d", w.runID, workerNum)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Consumer stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			job, err := jobFromDelivery(delivery.Body)
			if err != nil {
				w.logger.Error("Malformed job payload",
					slog.String("worker_name", workerName),
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				// Malformed messages go to the DLQ, never back to us.
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			o := w.processJob(ctx, job)
			w.record(o)

			if ackErr := delivery.Ack(false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.String("video_id", job.VideoID),
					slog.Any("error", ackErr),
				)
			}
		}
	}
}

// jobFromDelivery maps a queue payload onto a Job, applying the same
// defaults as the manifest reader.
func jobFromDelivery(body []byte) (domain.Job, error) {
	var msg domain.QueueJob
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.Job{}, fmt.Errorf("invalid job JSON: %w", err)
	}
	if msg.VideoID == "" {
		return domain.Job{}, fmt.Errorf("job payload missing id")
	}
	if msg.End != nil && msg.Start == nil {
		return domain.Job{}, fmt.Errorf("job payload has end offset without start offset")
	}

	job := domain.Job{VideoID: msg.VideoID, DestName: msg.Name}

	if msg.Start != nil {
		if *msg.Start < 0 {
			return domain.Job{}, fmt.Errorf("negative start offset")
		}
		job.Start = time.Duration(*msg.Start * float64(time.Second))
		job.End = job.Start + domain.DefaultClipLength
		if msg.End != nil {
			job.End = time.Duration(*msg.End * float64(time.Second))
		}
		if job.End <= job.Start {
			return domain.Job{}, fmt.Errorf("end offset not after start offset")
		}
		job.Trimmed = true
	}

	if job.DestName == "" {
		job.DestName = manifest.DefaultDestName(job)
	}
	return job, nil
}
