package tools

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// YtDlpDownloader invokes the configured download binary (yt-dlp by
// default) to fetch raw media for a video identifier.
type YtDlpDownloader struct {
	binary string
	logger *slog.Logger
}

// NewYtDlpDownloader creates a downloader using the given binary path.
func NewYtDlpDownloader(binary string, logger *slog.Logger) *YtDlpDownloader {
	return &YtDlpDownloader{binary: binary, logger: logger}
}

// Download runs `<binary> <id> -o <destPath>` and fails with the captured
// stderr when the tool exits non-zero.
func (d *YtDlpDownloader) Download(ctx context.Context, videoID, destPath string) error {
	args := downloadArgs(videoID, destPath)

	d.logger.Debug("Invoking download tool",
		slog.String("binary", d.binary),
		slog.String("video_id", videoID),
		slog.String("dest", destPath),
	)

	stderr, err := runTool(ctx, d.binary, args)
	if err != nil {
		return &domain.DownloadError{VideoID: videoID, Stderr: stderr, Err: err}
	}
	return nil
}

func downloadArgs(videoID, destPath string) []string {
	return []string{videoID, "-o", destPath}
}
