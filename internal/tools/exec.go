package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// runTool executes an external binary and returns the captured stderr
// together with any failure. A deadline hit on ctx is reported as
// domain.ErrToolTimeout so callers can record a timeout detail.
func runTool(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	captured := strings.TrimSpace(stderr.String())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return captured, fmt.Errorf("%s: %w", binary, domain.ErrToolTimeout)
			}
			return captured, fmt.Errorf("%s: %w", binary, ctxErr)
		}
		return captured, fmt.Errorf("%s: %w", binary, err)
	}

	return captured, nil
}

// formatOffset renders a duration as ffmpeg-style seconds ("5", "5.5").
func formatOffset(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
