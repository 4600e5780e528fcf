// Package tiktok scrapes public engagement counters from video pages.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/resilience"
)

// Stats holds the public counters of a video or account page.
type Stats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

const universalDataID = "__UNIVERSAL_DATA"

// Browser-looking UA; the page serves a consent stub to unknown agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Scraper fetches engagement stats from public pages.
type Scraper struct {
	http  *http.Client
	retry resilience.RetryConfig
}

// NewScraper creates an engagement scraper.
func NewScraper(timeout time.Duration, retry resilience.RetryConfig) *Scraper {
	if retry.Attempts <= 0 {
		retry = resilience.DefaultRetry()
	}
	return &Scraper{
		http:  &http.Client{Timeout: timeout},
		retry: retry,
	}
}

// Engagement fetches pageURL and extracts the embedded stats blob. Callers
// treat a failure as "no data yet", not as a pipeline error.
func (s *Scraper) Engagement(ctx context.Context, pageURL string) (Stats, error) {
	logger := log.WithComponentFromContext(ctx, "tiktok")
	logger.Info().Str("event", "engagement.fetch").Str("url", pageURL).Msg("fetching engagement")

	var stats Stats
	err := resilience.Retry(ctx, s.retry, "engagement fetch", func(ctx context.Context) error {
		var err error
		stats, err = s.fetchOnce(ctx, pageURL)
		return err
	})
	if err != nil {
		return Stats{}, err
	}

	logger.Info().
		Str("event", "engagement.done").
		Int64("views", stats.Views).
		Int64("likes", stats.Likes).
		Msg("engagement collected")
	return stats, nil
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.http.Do(req)
	if err != nil {
		return Stats{}, err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		return Stats{}, fmt.Errorf("page responded %d", res.StatusCode)
	}

	raw, err := findUniversalData(res.Body)
	if err != nil {
		return Stats{}, err
	}
	return parseStats(raw)
}

// findUniversalData walks the document for <script id="__UNIVERSAL_DATA"> and
// returns its text content.
func findUniversalData(r interface{ Read([]byte) (int, error) }) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val == universalDataID {
					if n.FirstChild != nil {
						found = n.FirstChild.Data
					}
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	if !walk(doc) || strings.TrimSpace(found) == "" {
		return "", fmt.Errorf("script %s not found", universalDataID)
	}
	return found, nil
}

func parseStats(raw string) (Stats, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Stats{}, fmt.Errorf("decode universal data: %w", err)
	}

	detail, ok := data["webapp.user-detail"]
	if !ok {
		return Stats{}, fmt.Errorf("universal data has no user detail")
	}

	var payload struct {
		Stats struct {
			PlayCount    int64 `json:"playCount"`
			DiggCount    int64 `json:"diggCount"`
			CommentCount int64 `json:"commentCount"`
			ShareCount   int64 `json:"shareCount"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(detail, &payload); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}

	return Stats{
		Views:    payload.Stats.PlayCount,
		Likes:    payload.Stats.DiggCount,
		Comments: payload.Stats.CommentCount,
		Shares:   payload.Stats.ShareCount,
	}, nil
}
