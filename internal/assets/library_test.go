package assets

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o640))
}

func TestLibraryIndexAndPick(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "backgrounds", "a.mp4"), 1)
	writeFile(t, filepath.Join(root, "backgrounds", "b.jpg"), 1)
	writeFile(t, filepath.Join(root, "backgrounds", "notes.txt"), 1)
	writeFile(t, filepath.Join(root, "music", "beat.mp3"), 1)

	lib := NewLibrary(root, rand.New(rand.NewSource(1)))
	require.NoError(t, lib.Reindex(context.Background()))

	backgrounds, music := lib.Counts()
	assert.Equal(t, 2, backgrounds, "txt files must be ignored")
	assert.Equal(t, 1, music)

	bg, ok := lib.RandomBackground()
	require.True(t, ok)
	assert.Contains(t, []string{".mp4", ".jpg"}, filepath.Ext(bg))

	m, ok := lib.RandomMusic()
	require.True(t, ok)
	assert.Equal(t, "beat.mp3", filepath.Base(m))
}

func TestLibraryEmptyDirs(t *testing.T) {
	lib := NewLibrary(t.TempDir(), nil)
	require.NoError(t, lib.Reindex(context.Background()))

	if _, ok := lib.RandomBackground(); ok {
		t.Error("no background expected")
	}
	if _, ok := lib.RandomMusic(); ok {
		t.Error("no music expected")
	}
}

func TestEnsureDirs(t *testing.T) {
	assets := filepath.Join(t.TempDir(), "assets")
	data := filepath.Join(t.TempDir(), "data")
	require.NoError(t, EnsureDirs(assets, data))

	for _, dir := range []string{
		filepath.Join(assets, "backgrounds"),
		filepath.Join(assets, "music"),
		filepath.Join(data, "videos"),
		filepath.Join(data, "temp_audio"),
		filepath.Join(data, "logs"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestWatchReindexesOnNewFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureDirs(root, t.TempDir()))

	lib := NewLibrary(root, nil)
	require.NoError(t, lib.Reindex(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lib.Watch(ctx))

	writeFile(t, filepath.Join(root, "music", "new.mp3"), 1)

	deadline := time.After(3 * time.Second)
	for {
		if _, music := lib.Counts(); music == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher did not reindex new music file")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
