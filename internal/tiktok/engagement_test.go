package tiktok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techcuan/cuanbot/internal/resilience"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>@techcuan</title></head>
<body>
<script id="__UNIVERSAL_DATA" type="application/json">
{"webapp.user-detail":{"stats":{"playCount":15400,"diggCount":1200,"commentCount":87,"shareCount":45}}}
</script>
</body></html>`

func newTestScraper() *Scraper {
	return NewScraper(5*time.Second, resilience.RetryConfig{Attempts: 1})
}

func TestEngagementParsesUniversalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("user agent = %q", ua)
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	stats, err := newTestScraper().Engagement(context.Background(), srv.URL+"/@techcuan")
	if err != nil {
		t.Fatalf("Engagement: %v", err)
	}

	want := Stats{Views: 15400, Likes: 1200, Comments: 87, Shares: 45}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestEngagementMissingScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>consent wall</body></html>"))
	}))
	defer srv.Close()

	if _, err := newTestScraper().Engagement(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for page without universal data")
	}
}

func TestEngagementBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<script id="__UNIVERSAL_DATA">not json</script>`))
	}))
	defer srv.Close()

	if _, err := newTestScraper().Engagement(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for malformed blob")
	}
}

func TestEngagementRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	s := NewScraper(5*time.Second, resilience.RetryConfig{Attempts: 3, Wait: time.Millisecond})
	stats, err := s.Engagement(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Engagement: %v", err)
	}
	if stats.Views != 15400 {
		t.Errorf("views = %d", stats.Views)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNewScraperDefaultsRetry(t *testing.T) {
	s := NewScraper(time.Second, resilience.RetryConfig{})
	if s.retry != resilience.DefaultRetry() {
		t.Errorf("retry = %+v, want DefaultRetry", s.retry)
	}
}
