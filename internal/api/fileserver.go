// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/metrics"
)

// secureFileServer serves finished videos from the videos directory with
// checks against path traversal, symlink escapes, and directory listing.
func (s *Server) secureFileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			metrics.RecordFileRequestDenied("method_not_allowed")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := r.URL.Path
		if isPathTraversal(path) {
			logger.Warn().Str("event", "file_req.denied").Str(log.FieldPath, path).Str("reason", "path_escape").Msg("detected traversal sequence")
			metrics.RecordFileRequestDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if strings.HasSuffix(path, "/") || path == "" {
			metrics.RecordFileRequestDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		absVideosDir, err := filepath.Abs(s.cfg.VideosDir)
		if err != nil {
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		fullPath := filepath.Join(absVideosDir, path)

		realPath, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				metrics.RecordFileRequestDenied("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		realVideosDir, err := filepath.EvalSymlinks(absVideosDir)
		if err != nil {
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		relPath, err := filepath.Rel(realVideosDir, realPath)
		if err != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
			logger.Warn().
				Str("event", "file_req.denied").
				Str(log.FieldPath, path).
				Str("resolved_path", realPath).
				Str("reason", "path_escape").
				Msg("path escapes videos directory")
			metrics.RecordFileRequestDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// #nosec G304 -- realPath is validated to reside inside the videos dir
		f, err := os.Open(realPath)
		if err != nil {
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer f.Close() //nolint:errcheck

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			metrics.RecordFileRequestDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// Weak ETag from modtime and size; good enough for Tasker's caching.
		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			metrics.RecordFileCacheHit()
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if strings.HasSuffix(strings.ToLower(info.Name()), ".mp4") {
			w.Header().Set("Content-Type", "video/mp4")
		}

		logger.Info().Str("event", "file_req.allowed").Str(log.FieldPath, path).Msg("serving video")
		metrics.RecordFileRequestAllowed()
		metrics.RecordFileCacheMiss()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes the input multiple times to catch double-encoding,
// applies Unicode normalization, and searches for dangerous sequences
// including NULs.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pat := range []string{"..", "..\\", "%00", "\x00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}

	normalized := strings.ToLower(norm.NFC.String(decoded))
	return strings.Contains(normalized, "..")
}
