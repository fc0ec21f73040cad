package domain

import "errors"

var (
	// ErrToolTimeout is returned when an external tool invocation exceeds
	// its configured deadline and is killed.
	ErrToolTimeout = errors.New("external tool timed out")

	// ErrRunCanceled is returned when a job is abandoned because the run
	// context was canceled before or during execution.
	ErrRunCanceled = errors.New("run canceled")

	// ErrEmptyOutput is returned when both tools exit zero but the
	// destination file is missing or empty.
	ErrEmptyOutput = errors.New("destination file missing or empty")
)

// DownloadError wraps a failed download tool invocation, carrying the
// captured stderr for the outcome detail.
type DownloadError struct {
	VideoID string
	Stderr  string
	Err     error
}

func (e *DownloadError) Error() string {
	if e.Stderr != "" {
		return "download failed: " + e.Err.Error() + ": " + e.Stderr
	}
	return "download failed: " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// TranscodeError wraps a failed transcode tool invocation.
type TranscodeError struct {
	VideoID string
	Stderr  string
	Err     error
}

func (e *TranscodeError) Error() string {
	if e.Stderr != "" {
		return "transcode failed: " + e.Err.Error() + ": " + e.Stderr
	}
	return "transcode failed: " + e.Err.Error()
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
