package analytics

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcuan/cuanbot/internal/tiktok"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "Tips AI", "#AI #TechCuan", tiktok.Stats{Views: 100, Likes: 10}))
	require.NoError(t, store.Record(ctx, "Kerja Remote", "#Remote", tiktok.Stats{Views: 250, Likes: 30, Comments: 5, Shares: 2}))

	rows, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first.
	assert.Equal(t, "Kerja Remote", rows[0].Title)
	assert.Equal(t, int64(250), rows[0].Views)
	assert.Equal(t, int64(2), rows[0].Shares)
	assert.Equal(t, "Tips AI", rows[1].Title)
	assert.False(t, rows[0].Timestamp.IsZero())
}

func TestRecentLimitAndDefault(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, "judul", "", tiktok.Stats{}))
	}

	rows, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestExportCSV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "Video Satu", "#satu", tiktok.Stats{Views: 42}))
	require.NoError(t, store.Record(ctx, "Video Dua", "#dua", tiktok.Stats{Views: 77, Likes: 7}))

	csvPath := filepath.Join(t.TempDir(), "analytics.csv")
	require.NoError(t, store.ExportCSV(ctx, csvPath))

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"timestamp", "judul", "hashtags", "views", "likes", "comments", "shares"}, records[0])
	// Oldest first in the export.
	assert.Equal(t, "Video Satu", records[1][1])
	assert.Equal(t, "42", records[1][3])
	assert.Equal(t, "Video Dua", records[2][1])
	assert.Equal(t, "7", records[2][4])
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "deep", "analytics.db"))
	assert.Error(t, err)
}
