// Package analytics persists per-video performance rows and exports them as CSV.
package analytics

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/tiktok"
)

// Row is one recorded production with its engagement snapshot.
type Row struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Hashtags  string    `json:"hashtags"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
}

// Store wraps the SQLite database holding the performance table.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS performance (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        TEXT NOT NULL,
	title     TEXT NOT NULL,
	hashtags  TEXT NOT NULL DEFAULT '',
	views     INTEGER NOT NULL DEFAULT 0,
	likes     INTEGER NOT NULL DEFAULT 0,
	comments  INTEGER NOT NULL DEFAULT 0,
	shares    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_performance_ts ON performance(ts);
`

// Open creates (or opens) the database at dbPath and ensures the schema. The
// DSN carries the PRAGMAs so they apply to every pooled connection.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("analytics: ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("analytics: migrate failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts one performance row.
func (s *Store) Record(ctx context.Context, title, hashtags string, stats tiktok.Stats) error {
	logger := log.WithComponentFromContext(ctx, "analytics")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO performance (ts, title, hashtags, views, likes, comments, shares)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), title, hashtags,
		stats.Views, stats.Likes, stats.Comments, stats.Shares,
	)
	if err != nil {
		return fmt.Errorf("analytics: insert failed: %w", err)
	}

	logger.Info().
		Str("event", "analytics.recorded").
		Str("title", title).
		Int64("views", stats.Views).
		Msg("performance row recorded")
	return nil
}

// Recent returns the newest n rows, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Row, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, title, hashtags, views, likes, comments, shares
		 FROM performance ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("analytics: query failed: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Row
	for rows.Next() {
		var r Row
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Title, &r.Hashtags, &r.Views, &r.Likes, &r.Comments, &r.Shares); err != nil {
			return nil, fmt.Errorf("analytics: scan failed: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			r.Timestamp = parsed
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExportCSV writes every row to csvPath atomically, oldest first, with a
// header row matching the historical analytics.csv layout.
func (s *Store) ExportCSV(ctx context.Context, csvPath string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, title, hashtags, views, likes, comments, shares
		 FROM performance ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("analytics: export query failed: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	pending, err := renameio.NewPendingFile(csvPath)
	if err != nil {
		return fmt.Errorf("analytics: open csv: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck

	w := csv.NewWriter(pending)
	if err := w.Write([]string{"timestamp", "judul", "hashtags", "views", "likes", "comments", "shares"}); err != nil {
		return err
	}

	count := 0
	for rows.Next() {
		var ts, title, hashtags string
		var views, likes, comments, shares int64
		if err := rows.Scan(&ts, &title, &hashtags, &views, &likes, &comments, &shares); err != nil {
			return fmt.Errorf("analytics: scan failed: %w", err)
		}
		record := []string{
			ts, title, hashtags,
			strconv.FormatInt(views, 10),
			strconv.FormatInt(likes, 10),
			strconv.FormatInt(comments, 10),
			strconv.FormatInt(shares, 10),
		}
		if err := w.Write(record); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("analytics: replace csv: %w", err)
	}

	log.WithComponentFromContext(ctx, "analytics").Info().
		Str("event", "analytics.exported").
		Str(log.FieldPath, csvPath).
		Int("rows", count).
		Msg("csv export written")
	return nil
}
