package trends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/techcuan/cuanbot/internal/cache"
	"github.com/techcuan/cuanbot/internal/resilience"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item><title>Tren AI 2025</title></item>
<item><title>Kerja Remote</title></item>
</channel></rss>`

const sampleTokBoard = `<html><body>
<div class="chart">
  <span class="sound-title">Lagu Viral Satu</span>
  <span class="sound-title">  Lagu Viral Dua </span>
</div>
</body></html>`

func newTestService(t *testing.T, google, tokboard http.HandlerFunc) *Service {
	t.Helper()
	gs := httptest.NewServer(google)
	ts := httptest.NewServer(tokboard)
	t.Cleanup(gs.Close)
	t.Cleanup(ts.Close)
	return New(Config{
		GoogleBase:   gs.URL,
		TokBoardBase: ts.URL,
		Retry:        resilience.RetryConfig{Attempts: 1},
		Cache:        cache.NewNoOpCache(),
	})
}

func TestTopicsMergesBothSources(t *testing.T) {
	s := newTestService(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/trends/trendingsearches/daily/rss" || r.URL.Query().Get("geo") != "ID" {
				t.Errorf("unexpected feed request %s", r.URL)
			}
			_, _ = w.Write([]byte(sampleRSS))
		},
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(sampleTokBoard))
		},
	)

	topics := s.Topics(context.Background())
	want := []string{
		"Tren AI 2025 #TrenAI2025 #TechCuan",
		"Kerja Remote #KerjaRemote #TechCuan",
		"Sound: Lagu Viral Satu #TechCuan",
		"Sound: Lagu Viral Dua #TechCuan",
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v", topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], want[i])
		}
	}
}

func TestTopicsPartialFailureKeepsOtherSource(t *testing.T) {
	s := newTestService(t,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(sampleTokBoard)) },
	)

	topics := s.Topics(context.Background())
	if len(topics) != 2 || !strings.HasPrefix(topics[0], "Sound: ") {
		t.Fatalf("topics = %v", topics)
	}
}

func TestTopicsFallbackWhenAllSourcesFail(t *testing.T) {
	fail := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }
	s := newTestService(t, fail, fail)

	topics := s.Topics(context.Background())
	if len(topics) != 5 {
		t.Fatalf("topics = %v, want the 5 fallbacks", topics)
	}
	for _, topic := range topics {
		if !strings.Contains(topic, "#TechCuan") {
			t.Errorf("fallback %q missing brand tag", topic)
		}
	}
}

func TestTopicsServedFromCache(t *testing.T) {
	var googleCalls atomic.Int32
	s := newTestService(t,
		func(w http.ResponseWriter, r *http.Request) {
			googleCalls.Add(1)
			_, _ = w.Write([]byte(sampleRSS))
		},
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
	)
	s.cfg.Cache = cache.NewMemoryCache(0)
	s.cfg.CacheTTL = time.Minute

	first := s.Topics(context.Background())
	second := s.Topics(context.Background())
	if googleCalls.Load() != 1 {
		t.Errorf("google calls = %d, want 1", googleCalls.Load())
	}
	if len(first) != len(second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
}

// The Redis backend round-trips values through JSON, so the cached []string
// comes back as []any; the hit path must still serve it without refetching.
func TestTopicsServedFromRedisCache(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	nop := zerolog.Nop()
	redisCache, err := cache.NewRedisCache(cache.RedisConfig{Addr: mr.Addr()}, &nop)
	if err != nil {
		t.Fatalf("redis cache: %v", err)
	}

	var fetches atomic.Int32
	s := newTestService(t,
		func(w http.ResponseWriter, r *http.Request) {
			fetches.Add(1)
			_, _ = w.Write([]byte(sampleRSS))
		},
		func(w http.ResponseWriter, r *http.Request) {
			fetches.Add(1)
			_, _ = w.Write([]byte(sampleTokBoard))
		},
	)
	s.cfg.Cache = redisCache
	s.cfg.CacheTTL = time.Minute

	first := s.Topics(context.Background())
	before := fetches.Load()
	second := s.Topics(context.Background())

	if got := fetches.Load(); got != before {
		t.Errorf("upstream fetches = %d after cached call, want %d", got, before)
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("cached topics[%d] = %q, want %q", i, second[i], first[i])
		}
	}
}

func TestAsStringSlice(t *testing.T) {
	if got := asStringSlice([]any{"a", "b"}); len(got) != 2 || got[0] != "a" {
		t.Errorf("[]any conversion = %v", got)
	}
	if got := asStringSlice([]string{"a"}); len(got) != 1 {
		t.Errorf("[]string passthrough = %v", got)
	}
	if got := asStringSlice([]any{"a", 3}); got != nil {
		t.Errorf("mixed slice = %v, want nil", got)
	}
	if got := asStringSlice("a"); got != nil {
		t.Errorf("scalar = %v, want nil", got)
	}
}

func TestHashtagify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Tren AI 2025", "TrenAI2025"},
		{"kerja-remote!", "kerjaremote"},
		{"   ", "TechCuan"},
	}
	for _, tc := range cases {
		if got := hashtagify(tc.in); got != tc.want {
			t.Errorf("hashtagify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewDefaultsRetry(t *testing.T) {
	s := New(Config{})
	if s.cfg.Retry != resilience.DefaultRetry() {
		t.Errorf("retry = %+v, want DefaultRetry", s.cfg.Retry)
	}
}
