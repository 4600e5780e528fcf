// Package trends aggregates topic candidates from Google Trends and TokBoard.
package trends

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/techcuan/cuanbot/internal/cache"
	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/metrics"
	"github.com/techcuan/cuanbot/internal/ratelimit"
	"github.com/techcuan/cuanbot/internal/resilience"
)

// Fallback topics keep the pipeline producing when both sources are down.
var fallbackTopics = []string{
	"Tips cuan dengan AI #AICuan #TechCuan",
	"Tren kerja remote 2025 #RemoteWork #TechCuan",
	"Rahasia algoritma TikTok #TikTokTips #TechCuan",
	"Konten viral dengan AI #ViralAI #TechCuan",
	"Tools AI untuk Gen Z #AITools #TechCuan",
}

const (
	cacheKey  = "trends:topics"
	maxTopics = 5
	maxSounds = 5
)

// Config holds service construction options.
type Config struct {
	// GoogleBase is the Google Trends host; the daily RSS path is appended.
	GoogleBase string
	// TokBoardBase is the TokBoard page URL.
	TokBoardBase string
	Geo          string

	Timeout  time.Duration
	Retry    resilience.RetryConfig
	CacheTTL time.Duration

	Cache   cache.Cache
	Limiter *ratelimit.Limiter

	// Rand drives topic selection in Pick; nil uses the global source.
	Rand *rand.Rand
}

// Service fetches and caches ranked topic strings.
type Service struct {
	cfg  Config
	http *http.Client
}

// New creates a trends service.
func New(cfg Config) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Geo == "" {
		cfg.Geo = "ID"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = resilience.DefaultRetry()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoOpCache()
	}
	return &Service{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Topics returns ranked topic strings, serving from cache when fresh. It never
// returns an empty slice: when both sources fail the hardcoded fallbacks are
// returned and the fallback counter is bumped.
func (s *Service) Topics(ctx context.Context) []string {
	logger := log.WithComponentFromContext(ctx, "trends")

	if cached, ok := s.cfg.Cache.Get(cacheKey); ok {
		if topics := asStringSlice(cached); len(topics) > 0 {
			logger.Debug().Str("event", "trends.cache_hit").Int("count", len(topics)).Msg("serving cached trends")
			return topics
		}
	}

	// Both sources are best-effort; fetch them concurrently and merge
	// whatever came back, Google first.
	var google, sounds []string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if google, err = s.googleTopics(ctx); err != nil {
			logger.Warn().Err(err).Str("event", "trends.google_failed").Msg("google trends unavailable")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sounds, err = s.tokboardSounds(ctx); err != nil {
			logger.Warn().Err(err).Str("event", "trends.tokboard_failed").Msg("tokboard unavailable")
		}
		return nil
	})
	_ = g.Wait()

	topics := append(append([]string(nil), google...), sounds...)

	if len(topics) == 0 {
		logger.Warn().Str("event", "trends.fallback").Msg("all sources failed, using fallback topics")
		metrics.IncTrendsFallback()
		return fallbackTopics
	}

	s.cfg.Cache.Set(cacheKey, topics, s.cfg.CacheTTL)
	metrics.RecordTrendsCollected(len(topics))
	logger.Info().Str("event", "trends.collected").Int("count", len(topics)).Msg("trends collected")
	return topics
}

// Pick returns one random topic.
func (s *Service) Pick(ctx context.Context) string {
	topics := s.Topics(ctx)
	if s.cfg.Rand != nil {
		return topics[s.cfg.Rand.Intn(len(topics))]
	}
	return topics[rand.Intn(len(topics))]
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

// googleTopics reads the daily trending-searches RSS feed and formats each
// title as "<topic> #<hashtag> #TechCuan".
func (s *Service) googleTopics(ctx context.Context) ([]string, error) {
	feedURL := fmt.Sprintf("%s/trends/trendingsearches/daily/rss?geo=%s",
		strings.TrimRight(s.cfg.GoogleBase, "/"), s.cfg.Geo)

	var body []byte
	err := resilience.Retry(ctx, s.cfg.Retry, "google trends fetch", func(ctx context.Context) error {
		var err error
		body, err = s.fetch(ctx, feedURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	var topics []string
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		topics = append(topics, fmt.Sprintf("%s #%s #TechCuan", title, hashtagify(title)))
		if len(topics) == maxTopics {
			break
		}
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("feed contained no items")
	}
	return topics, nil
}

// tokboardSounds scrapes .sound-title elements and formats each as
// "Sound: <name> #TechCuan".
func (s *Service) tokboardSounds(ctx context.Context) ([]string, error) {
	var body []byte
	err := resilience.Retry(ctx, s.cfg.Retry, "tokboard fetch", func(ctx context.Context) error {
		var err error
		body, err = s.fetch(ctx, s.cfg.TokBoardBase)
		return err
	})
	if err != nil {
		return nil, err
	}

	titles, err := extractSoundTitles(string(body))
	if err != nil {
		return nil, err
	}

	var topics []string
	for _, title := range titles {
		topics = append(topics, fmt.Sprintf("Sound: %s #TechCuan", title))
		if len(topics) == maxSounds {
			break
		}
	}
	return topics, nil
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx, "trends"); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	res, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s responded %d", url, res.StatusCode)
	}

	// 2 MiB is plenty for an RSS feed or a chart page.
	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// extractSoundTitles collects the text of every element carrying the
// sound-title class.
func extractSoundTitles(page string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var titles []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "sound-title") {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				titles = append(titles, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(titles) == 0 {
		return nil, fmt.Errorf("no sound titles found")
	}
	return titles, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// asStringSlice recovers a topic list from a cache value. The Redis backend
// stores JSON, so a slice cached as []string comes back as []any.
func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}

// hashtagify turns "Tren AI 2025" into "TrenAI2025".
func hashtagify(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "TechCuan"
	}
	return b.String()
}
