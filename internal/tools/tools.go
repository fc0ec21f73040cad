// Package tools wraps the external download and transcode binaries behind
// interfaces so the worker can be tested without invoking real processes.
package tools

import (
	"context"
	"time"
)

// Downloader fetches raw media for a video identifier into destPath.
type Downloader interface {
	Download(ctx context.Context, videoID, destPath string) error
}

// TranscodeRequest describes one conversion of a downloaded file into the
// final destination, optionally trimmed to a start/end range.
type TranscodeRequest struct {
	InputPath  string
	OutputPath string
	Start      time.Duration
	End        time.Duration
	Trimmed    bool
}

// Transcoder converts downloaded media into the destination format.
type Transcoder interface {
	Transcode(ctx context.Context, req TranscodeRequest) error
}
