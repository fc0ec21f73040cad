package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/clipfetch/internal/tools"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// memRecorder collects outcomes in memory for assertions.
type memRecorder struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
}

func (m *memRecorder) Record(o domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memRecorder) all() []domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Outcome(nil), m.outcomes...)
}

func (m *memRecorder) byID() map[string]domain.Outcome {
	byID := make(map[string]domain.Outcome)
	for _, o := range m.all() {
		byID[o.VideoID] = o
	}
	return byID
}

// gauge tracks the maximum number of simultaneous tool invocations.
type gauge struct {
	mu      sync.Mutex
	current int
	max     int
}

func (g *gauge) enter() {
	g.mu.Lock()
	g.current++
	if g.current > g.max {
		g.max = g.current
	}
	g.mu.Unlock()
}

func (g *gauge) exit() {
	g.mu.Lock()
	g.current--
	g.mu.Unlock()
}

func (g *gauge) observedMax() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

type fakeDownloader struct {
	mu      sync.Mutex
	calls   map[string]int
	failIDs map[string]error
	delay   time.Duration
	gauge   *gauge
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{calls: make(map[string]int), failIDs: make(map[string]error)}
}

func (d *fakeDownloader) Download(ctx context.Context, videoID, destPath string) error {
	if d.gauge != nil {
		d.gauge.enter()
		defer d.gauge.exit()
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return &domain.DownloadError{VideoID: videoID, Err: ctx.Err()}
		}
	}

	d.mu.Lock()
	d.calls[videoID]++
	d.mu.Unlock()

	if err, ok := d.failIDs[videoID]; ok {
		return err
	}
	return os.WriteFile(destPath, []byte("raw media"), 0o644)
}

func (d *fakeDownloader) callCount(videoID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[videoID]
}

type fakeTranscoder struct {
	mu         sync.Mutex
	calls      map[string]int // keyed by output path base
	failAll    error
	emptyFiles bool
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{calls: make(map[string]int)}
}

func (t *fakeTranscoder) Transcode(ctx context.Context, req tools.TranscodeRequest) error {
	t.mu.Lock()
	t.calls[filepath.Base(req.OutputPath)]++
	t.mu.Unlock()

	if t.failAll != nil {
		return t.failAll
	}
	content := []byte("encoded media")
	if t.emptyFiles {
		content = nil
	}
	return os.WriteFile(req.OutputPath, content, 0o644)
}

func (t *fakeTranscoder) totalCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		n += c
	}
	return n
}

func newTestWorker(t *testing.T, dl tools.Downloader, tc tools.Transcoder, rec OutcomeRecorder, concurrency int) (*Worker, string) {
	t.Helper()
	outDir := t.TempDir()
	w := New(&Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Downloader:   dl,
		Transcoder:   tc,
		Recorder:     rec,
		OutputDir:    outDir,
		VideoFormat:  "mp4",
		Concurrency:  concurrency,
		ToolTimeout:  time.Minute,
		SkipExisting: true,
	})
	return w, outDir
}

func TestWorker_Run_OneOutcomePerJob(t *testing.T) {
	dl := newFakeDownloader()
	dl.failIDs["bad_id"] = &domain.DownloadError{
		VideoID: "bad_id",
		Stderr:  "ERROR: video unavailable",
		Err:     errors.New("exit status 1"),
	}
	tc := newFakeTranscoder()
	rec := &memRecorder{}

	jobs := []domain.Job{
		{VideoID: "abc123", Start: 5 * time.Second, End: 15 * time.Second, Trimmed: true, DestName: "abc123_5000_15000"},
		{VideoID: "bad_id", DestName: "bad_id"},
		{VideoID: "xyz789", DestName: "xyz789"},
	}

	w, outDir := newTestWorker(t, dl, tc, rec, 2)
	w.Run(context.Background(), jobs)

	outcomes := rec.all()
	require.Len(t, outcomes, len(jobs))

	byID := rec.byID()
	require.Len(t, byID, len(jobs), "outcome identifiers must match manifest identifiers")

	assert.Equal(t, domain.StatusSuccess, byID["abc123"].Status)
	assert.Equal(t, domain.StatusSuccess, byID["xyz789"].Status)
	assert.Equal(t, domain.StatusFailure, byID["bad_id"].Status)
	assert.Contains(t, byID["bad_id"].Detail, "video unavailable")

	// the transcoder is never invoked after a failed download
	assert.Equal(t, 2, tc.totalCalls())

	// successful destinations exist and are non-empty
	for _, name := range []string{"abc123_5000_15000.mp4", "xyz789.mp4"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.NoFileExists(t, filepath.Join(outDir, "bad_id.mp4"))
}

func TestWorker_Run_ConcurrencyBound(t *testing.T) {
	const workers = 3

	g := &gauge{}
	dl := newFakeDownloader()
	dl.delay = 20 * time.Millisecond
	dl.gauge = g
	tc := newFakeTranscoder()
	rec := &memRecorder{}

	var jobs []domain.Job
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("vid%02d", i)
		jobs = append(jobs, domain.Job{VideoID: id, DestName: id})
	}

	w, _ := newTestWorker(t, dl, tc, rec, workers)
	w.Run(context.Background(), jobs)

	require.Len(t, rec.all(), 20)
	assert.LessOrEqual(t, g.observedMax(), workers)
	assert.Greater(t, g.observedMax(), 0)
}

func TestWorker_Run_SkipExisting(t *testing.T) {
	dl := newFakeDownloader()
	tc := newFakeTranscoder()
	rec := &memRecorder{}

	w, outDir := newTestWorker(t, dl, tc, rec, 1)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "abc123.mp4"), []byte("already here"), 0o644))

	w.Run(context.Background(), []domain.Job{{VideoID: "abc123", DestName: "abc123"}})

	byID := rec.byID()
	require.Contains(t, byID, "abc123")
	assert.Equal(t, domain.StatusSuccess, byID["abc123"].Status)
	assert.Contains(t, byID["abc123"].Detail, "skipped")

	// neither tool runs for a pre-existing destination
	assert.Zero(t, dl.callCount("abc123"))
	assert.Zero(t, tc.totalCalls())
}

func TestWorker_Run_CanceledStillRecordsEveryJob(t *testing.T) {
	dl := newFakeDownloader()
	tc := newFakeTranscoder()
	rec := &memRecorder{}

	var jobs []domain.Job
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("vid%02d", i)
		jobs = append(jobs, domain.Job{VideoID: id, DestName: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, _ := newTestWorker(t, dl, tc, rec, 2)
	w.Run(ctx, jobs)

	outcomes := rec.all()
	require.Len(t, outcomes, 10)
	for _, o := range outcomes {
		assert.Equal(t, domain.StatusFailure, o.Status)
		assert.Contains(t, o.Detail, "canceled")
	}
}

func TestWorker_Run_EmptyDestinationIsFailure(t *testing.T) {
	dl := newFakeDownloader()
	tc := newFakeTranscoder()
	tc.emptyFiles = true
	rec := &memRecorder{}

	w, outDir := newTestWorker(t, dl, tc, rec, 1)
	w.Run(context.Background(), []domain.Job{{VideoID: "abc123", DestName: "abc123"}})

	byID := rec.byID()
	require.Contains(t, byID, "abc123")
	assert.Equal(t, domain.StatusFailure, byID["abc123"].Status)
	assert.Contains(t, byID["abc123"].Detail, "missing or empty")

	// no partial destination left behind a failure outcome
	assert.NoFileExists(t, filepath.Join(outDir, "abc123.mp4"))
}

func TestWorker_Run_TranscodeFailure(t *testing.T) {
	dl := newFakeDownloader()
	tc := newFakeTranscoder()
	tc.failAll = &domain.TranscodeError{
		VideoID: "abc123",
		Stderr:  "Invalid data found when processing input",
		Err:     errors.New("exit status 1"),
	}
	rec := &memRecorder{}

	w, _ := newTestWorker(t, dl, tc, rec, 1)
	w.Run(context.Background(), []domain.Job{{VideoID: "abc123", DestName: "abc123"}})

	byID := rec.byID()
	assert.Equal(t, domain.StatusFailure, byID["abc123"].Status)
	assert.Contains(t, byID["abc123"].Detail, "Invalid data found")
}

func TestWorker_RunID_Stable(t *testing.T) {
	w := New(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:       "fixed-run-id",
		Recorder:    &memRecorder{},
		Concurrency: 1,
	})
	assert.Equal(t, "fixed-run-id", w.RunID())

	generated := New(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:    &memRecorder{},
		Concurrency: 1,
	})
	assert.NotEmpty(t, generated.RunID())
}
