package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/techcuan/cuanbot/internal/log"
)

const stderrTailLines = 40

// Executor runs ffmpeg processes with bounded stderr capture and a
// SIGTERM-then-KILL stop sequence.
type Executor struct {
	Bin string
	// GraceStop bounds how long a terminated process may linger before KILL.
	GraceStop time.Duration
}

// NewExecutor creates an executor for the given ffmpeg binary.
func NewExecutor(bin string) *Executor {
	return &Executor{Bin: bin, GraceStop: 5 * time.Second}
}

// Run executes ffmpeg with args and blocks until it exits. On failure the
// error carries the stderr tail so the caller's log shows what ffmpeg said.
func (e *Executor) Run(ctx context.Context, args []string) error {
	logger := log.WithComponentFromContext(ctx, "media")
	logger.Debug().Str("event", "ffmpeg.start").Strs("args", args).Msg("starting ffmpeg")

	cmd := exec.CommandContext(ctx, e.Bin, args...) // #nosec G204

	tail := &lineTail{max: stderrTailLines}
	cmd.Stderr = tail

	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		// Let ffmpeg flush its output before the hard kill. The whole
		// process group is signalled so helper processes die too.
		return signalGroup(cmd, syscall.SIGTERM)
	}
	cmd.WaitDelay = e.GraceStop

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail.String())
	}

	logger.Info().
		Str("event", "ffmpeg.done").
		Dur("elapsed", time.Since(start)).
		Msg("ffmpeg finished")
	return nil
}

// lineTail keeps the last max lines written to it.
type lineTail struct {
	lines   []string
	partial bytes.Buffer
	max     int
}

func (t *lineTail) Write(p []byte) (int, error) {
	t.partial.Write(p)
	for {
		raw := t.partial.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		t.push(string(raw[:idx]))
		t.partial.Next(idx + 1)
	}
	return len(p), nil
}

func (t *lineTail) push(line string) {
	t.lines = append(t.lines, strings.TrimRight(line, "\r"))
	if len(t.lines) > t.max {
		t.lines = t.lines[1:]
	}
}

func (t *lineTail) String() string {
	lines := t.lines
	if rest := strings.TrimSpace(t.partial.String()); rest != "" {
		lines = append(lines, rest)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
