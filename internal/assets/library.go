// Package assets indexes background and music files and enforces the disk
// quotas of the data directory.
package assets

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/techcuan/cuanbot/internal/log"
)

var backgroundExts = map[string]bool{".mp4": true, ".jpg": true, ".jpeg": true, ".png": true}
var musicExts = map[string]bool{".mp3": true}

// Library indexes the backgrounds/ and music/ subdirectories of the assets
// root and serves random picks for the composer.
type Library struct {
	root string
	rand *rand.Rand

	mu          sync.RWMutex
	backgrounds []string
	music       []string
}

// NewLibrary creates a library over root. Pass a non-nil rng for deterministic
// picks in tests.
func NewLibrary(root string, rng *rand.Rand) *Library {
	return &Library{root: root, rand: rng}
}

// EnsureDirs creates the asset subdirectories and the data-side working
// directories the pipeline writes into.
func EnsureDirs(assetsRoot, dataRoot string) error {
	dirs := []string{
		filepath.Join(assetsRoot, "backgrounds"),
		filepath.Join(assetsRoot, "music"),
		filepath.Join(dataRoot, "videos"),
		filepath.Join(dataRoot, "temp_audio"),
		filepath.Join(dataRoot, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Reindex rescans both asset directories.
func (l *Library) Reindex(ctx context.Context) error {
	backgrounds, err := scanDir(filepath.Join(l.root, "backgrounds"), backgroundExts)
	if err != nil {
		return err
	}
	music, err := scanDir(filepath.Join(l.root, "music"), musicExts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.backgrounds = backgrounds
	l.music = music
	l.mu.Unlock()

	log.WithComponentFromContext(ctx, "assets").Info().
		Str("event", "assets.indexed").
		Int("backgrounds", len(backgrounds)).
		Int("music", len(music)).
		Msg("asset library indexed")
	return nil
}

// RandomBackground returns a random background file. The second return is
// false when no backgrounds exist; the composer then renders a black canvas.
func (l *Library) RandomBackground() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pick(l.backgrounds)
}

// RandomMusic returns a random music bed, or false when none exist.
func (l *Library) RandomMusic() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pick(l.music)
}

// Counts reports the current index sizes.
func (l *Library) Counts() (backgrounds, music int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.backgrounds), len(l.music)
}

func (l *Library) pick(files []string) (string, bool) {
	if len(files) == 0 {
		return "", false
	}
	if l.rand != nil {
		return files[l.rand.Intn(len(files))], true
	}
	return files[rand.Intn(len(files))], true
}

// Watch reindexes on filesystem changes until ctx is done. Events are
// debounced so copying a large file in does not trigger a scan per chunk.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	for _, dir := range []string{filepath.Join(l.root, "backgrounds"), filepath.Join(l.root, "music")} {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	logger := log.WithComponentFromContext(ctx, "assets")
	logger.Info().Str("event", "assets.watcher_started").Str(log.FieldPath, l.root).Msg("watching asset directories")

	go func() {
		defer watcher.Close() //nolint:errcheck

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				logger.Info().Str("event", "assets.watcher_stopped").Msg("asset watcher stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						if err := l.Reindex(ctx); err != nil {
							logger.Error().Err(err).Str("event", "assets.reindex_failed").Msg("asset reindex failed")
						}
					})
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Str("event", "assets.watcher_error").Msg("asset watcher error")
			}
		}
	}()
	return nil
}

func scanDir(dir string, exts map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
