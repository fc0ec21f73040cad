// Package outcome records one result line per job, safely under
// concurrent submission from the worker pool.
package outcome

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// Counts is a snapshot of the run progress.
type Counts struct {
	Expected  int `json:"expected"`
	Recorded  int `json:"recorded"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Sink appends outcome records to a TSV file, one line per job:
// <identifier>\t<status>\t<detail-or-empty>. A mutex serializes writers.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
	counts Counts
}

// NewSink opens (or creates) the outcome log at path in append mode.
func NewSink(path string, logger *slog.Logger) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open outcome log: %w", err)
	}
	return &Sink{file: f, logger: logger}, nil
}

// SetExpected declares how many outcomes this run should produce.
func (s *Sink) SetExpected(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Expected = n
}

// Record appends one outcome line and updates the progress counters.
func (s *Sink) Record(o domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := o.VideoID + "\t" + o.Status + "\t" + sanitizeDetail(o.Detail) + "\n"
	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append outcome: %w", err)
	}

	s.counts.Recorded++
	switch o.Status {
	case domain.StatusSuccess:
		s.counts.Succeeded++
	case domain.StatusFailure:
		s.counts.Failed++
	}

	s.logger.Info("Outcome recorded",
		slog.String("video_id", o.VideoID),
		slog.String("status", o.Status),
		slog.Duration("elapsed", o.Elapsed),
	)
	return nil
}

// Counts returns a snapshot of the progress counters.
func (s *Sink) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		s.logger.Warn("Failed to sync outcome log", slog.Any("error", err))
	}
	return s.file.Close()
}

// sanitizeDetail keeps the log one line per outcome.
func sanitizeDetail(detail string) string {
	detail = strings.ReplaceAll(detail, "\t", " ")
	detail = strings.ReplaceAll(detail, "\r\n", " ")
	detail = strings.ReplaceAll(detail, "\n", " ")
	return detail
}
