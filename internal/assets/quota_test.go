package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	writeFile(t, path, size)
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestEnforceKeepsNewestUnderQuota(t *testing.T) {
	data := t.TempDir()
	videos := filepath.Join(data, "videos")
	for i, name := range []string{"oldest.mp4", "older.mp4", "old.mp4", "new.mp4", "newer.mp4", "newest.mp4", "latest.mp4"} {
		writeAged(t, filepath.Join(videos, name), 1<<20, time.Duration(7-i)*time.Hour)
	}

	// 7 MiB on disk against a 3 MiB quota, keep 5.
	q := VideoQuota(data, 3, 5)
	removed, err := q.Enforce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(videos)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	for _, gone := range []string{"oldest.mp4", "older.mp4"} {
		_, err := os.Stat(filepath.Join(videos, gone))
		assert.True(t, os.IsNotExist(err), "%s should be evicted", gone)
	}
}

func TestEnforceNoopUnderQuota(t *testing.T) {
	data := t.TempDir()
	writeFile(t, filepath.Join(data, "videos", "a.mp4"), 100)

	removed, err := VideoQuota(data, 100, 5).Enforce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestEnforceMissingDir(t *testing.T) {
	removed, err := LogQuota(filepath.Join(t.TempDir(), "nope"), 50, 3).Enforce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestEnforceIgnoresOtherExtensions(t *testing.T) {
	data := t.TempDir()
	writeAged(t, filepath.Join(data, "logs", "a.log"), 1<<20, 2*time.Hour)
	writeAged(t, filepath.Join(data, "logs", "b.log"), 1<<20, time.Hour)
	writeFile(t, filepath.Join(data, "logs", "keep.db"), 10<<20)

	// db file does not count toward the .log quota.
	removed, err := LogQuota(data, 5, 3).Enforce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = os.Stat(filepath.Join(data, "logs", "keep.db"))
	assert.NoError(t, err)
}
