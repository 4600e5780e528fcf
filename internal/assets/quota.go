package assets

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/metrics"
)

// Quota bounds a directory by total size, keeping the newest files when the
// limit is exceeded.
type Quota struct {
	Kind     string // "video" or "log", used for metric labels
	Dir      string
	Ext      string // ".mp4" or ".log"
	MaxBytes int64
	Keep     int
}

// VideoQuota builds the quota for produced videos.
func VideoQuota(dataDir string, maxMB, keep int) Quota {
	return Quota{Kind: "video", Dir: filepath.Join(dataDir, "videos"), Ext: ".mp4", MaxBytes: int64(maxMB) << 20, Keep: keep}
}

// LogQuota builds the quota for rotated log files.
func LogQuota(dataDir string, maxMB, keep int) Quota {
	return Quota{Kind: "log", Dir: filepath.Join(dataDir, "logs"), Ext: ".log", MaxBytes: int64(maxMB) << 20, Keep: keep}
}

type quotaFile struct {
	path  string
	size  int64
	mtime int64
}

// Enforce deletes the oldest matching files when the directory exceeds
// MaxBytes, retaining at most Keep newest files. It returns how many files
// were removed.
func (q Quota) Enforce(ctx context.Context) (int, error) {
	logger := log.WithComponentFromContext(ctx, "assets")

	files, total, err := q.list()
	if err != nil {
		return 0, err
	}

	if q.Kind == "video" {
		metrics.RecordVideosOnDisk(len(files), total)
	}

	if total <= q.MaxBytes || len(files) <= q.Keep {
		return 0, nil
	}

	logger.Warn().
		Str("event", "quota.exceeded").
		Str(log.FieldPath, q.Dir).
		Int64("total_bytes", total).
		Int64("max_bytes", q.MaxBytes).
		Msg("quota exceeded, evicting oldest files")

	// Oldest first; everything before the newest Keep goes.
	sort.Slice(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	removed := 0
	for _, f := range files[:len(files)-q.Keep] {
		if err := os.Remove(f.path); err != nil {
			logger.Error().Err(err).Str(log.FieldPath, f.path).Msg("quota eviction failed")
			continue
		}
		metrics.IncQuotaEviction(q.Kind)
		removed++
		logger.Info().Str("event", "quota.evicted").Str(log.FieldPath, f.path).Msg("file removed")
	}

	if q.Kind == "video" {
		if files, total, err := q.list(); err == nil {
			metrics.RecordVideosOnDisk(len(files), total)
		}
	}
	return removed, nil
}

func (q Quota) list() ([]quotaFile, int64, error) {
	entries, err := os.ReadDir(q.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	var files []quotaFile
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), q.Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, quotaFile{
			path:  filepath.Join(q.Dir, e.Name()),
			size:  info.Size(),
			mtime: info.ModTime().UnixNano(),
		})
		total += info.Size()
	}
	return files, total, nil
}
