// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DataDirChecker verifies the data directory exists and is writable.
type DataDirChecker struct {
	Dir string
}

func (c *DataDirChecker) Name() string { return "data_dir" }

func (c *DataDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("%s is not a directory", c.Dir)}
	}

	probe := filepath.Join(c.Dir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("not writable: %v", err)}
	}
	_ = os.Remove(probe)

	return CheckResult{Status: StatusHealthy}
}

// FFmpegChecker verifies the ffmpeg binary can be resolved. Without it no
// video can be rendered, but the API surface still works, so absence is
// degraded rather than unhealthy.
type FFmpegChecker struct {
	Path string
}

func (c *FFmpegChecker) Name() string { return "ffmpeg" }

func (c *FFmpegChecker) Check(_ context.Context) CheckResult {
	path := c.Path
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: resolved}
}

// TelegramChecker reports whether notification credentials are configured.
// The bot runs without them, it just cannot tell anyone about new videos.
type TelegramChecker struct {
	Token  string
	ChatID string
}

func (c *TelegramChecker) Name() string { return "telegram" }

func (c *TelegramChecker) Check(_ context.Context) CheckResult {
	if c.Token == "" || c.ChatID == "" {
		return CheckResult{Status: StatusDegraded, Message: "notifications disabled (missing token or chat id)"}
	}
	return CheckResult{Status: StatusHealthy}
}
