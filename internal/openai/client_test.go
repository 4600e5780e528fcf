package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techcuan/cuanbot/internal/resilience"
)

func testClient(base string) *Client {
	return New(Config{
		Base:   base,
		APIKey: "sk-test",
		Retry:  resilience.RetryConfig{Attempts: 2, Wait: time.Millisecond},
	})
}

func completionsHandler(t *testing.T, reply string, check func(r *http.Request, req chatRequest)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestCaptionSendsPersonaPrompt(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(completionsHandler(t, "Narasi keren!\nCaption singkat", func(r *http.Request, req chatRequest) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth = %s", auth)
		}
		got = req
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Caption(context.Background(), "Tips cuan dengan AI")
	if err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if text != "Narasi keren!\nCaption singkat" {
		t.Errorf("text = %q", text)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %s", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "kreator TikTok Indonesia") {
		t.Errorf("system prompt = %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "Tips cuan dengan AI") {
		t.Errorf("user prompt = %q", got.Messages[1].Content)
	}
}

func TestHashtagsPrompt(t *testing.T) {
	srv := httptest.NewServer(completionsHandler(t, "#TechCuan #AI", func(_ *http.Request, req chatRequest) {
		if !strings.Contains(req.Messages[1].Content, "5-7 hashtag") {
			t.Errorf("user prompt = %q", req.Messages[1].Content)
		}
	}))
	defer srv.Close()

	tags, err := testClient(srv.URL).Hashtags(context.Background(), "remote work")
	if err != nil {
		t.Fatalf("Hashtags: %v", err)
	}
	if tags != "#TechCuan #AI" {
		t.Errorf("tags = %q", tags)
	}
}

func TestCaptionRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Caption(context.Background(), "topic")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v, want upstream message surfaced", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (retry exhausted)", calls.Load())
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Hashtags(context.Background(), "topic")
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("err = %v, want no choices", err)
	}
}

func TestFallbacks(t *testing.T) {
	if !strings.Contains(FallbackCaption("Tren AI"), "Tren AI") {
		t.Error("fallback caption must embed the topic")
	}
	if !strings.Contains(FallbackHashtags, "#TechCuan") {
		t.Error("fallback hashtags must carry the brand tag")
	}
}

func TestNewDefaultsRetry(t *testing.T) {
	c := New(Config{})
	if c.retry != resilience.DefaultRetry() {
		t.Errorf("retry = %+v, want DefaultRetry", c.retry)
	}
}
