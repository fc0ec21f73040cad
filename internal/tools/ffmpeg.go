package tools

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// FfmpegTranscoder invokes the configured transcode binary (ffmpeg by
// default) to convert and optionally trim a downloaded file.
type FfmpegTranscoder struct {
	binary string
	logger *slog.Logger
}

// NewFfmpegTranscoder creates a transcoder using the given binary path.
func NewFfmpegTranscoder(binary string, logger *slog.Logger) *FfmpegTranscoder {
	return &FfmpegTranscoder{binary: binary, logger: logger}
}

// Transcode runs `<binary> -y -loglevel error -i <in> [-ss <start> -to <end>] <out>`.
func (t *FfmpegTranscoder) Transcode(ctx context.Context, req TranscodeRequest) error {
	args := transcodeArgs(req)

	t.logger.Debug("Invoking transcode tool",
		slog.String("binary", t.binary),
		slog.String("input", req.InputPath),
		slog.String("output", req.OutputPath),
	)

	stderr, err := runTool(ctx, t.binary, args)
	if err != nil {
		videoID := filepath.Base(req.OutputPath)
		return &domain.TranscodeError{VideoID: videoID, Stderr: stderr, Err: err}
	}
	return nil
}

func transcodeArgs(req TranscodeRequest) []string {
	args := []string{"-y", "-loglevel", "error", "-i", req.InputPath}
	if req.Trimmed {
		args = append(args, "-ss", formatOffset(req.Start), "-to", formatOffset(req.End))
	}
	return append(args, req.OutputPath)
}
