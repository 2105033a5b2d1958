package ffmpegexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeFormatOutput struct {
	Format probeFormat `json:"format"`
}

// ProbeDuration returns the total duration, in seconds, of a local media
// file via ffprobe's format section. Used by the percentage screenshot
// method, which requires a file input whose total length is known
// synchronously at admission time.
func ProbeDuration(ctx context.Context, url string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	var parsed probeFormatOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("ffprobe: parse format: %w", err)
	}
	d, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration %q: %w", parsed.Format.Duration, err)
	}
	return d, nil
}
