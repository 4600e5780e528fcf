package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Prober reads media metadata through ffprobe.
type Prober struct {
	Bin     string
	Timeout time.Duration
}

// NewProber creates a prober for the given ffprobe binary.
func NewProber(bin string) *Prober {
	return &Prober{Bin: bin, Timeout: 30 * time.Second}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration of path in seconds. The narration
// duration drives every timing decision in the composition.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Bin, // #nosec G204
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %f for %s", seconds, path)
	}
	return seconds, nil
}
