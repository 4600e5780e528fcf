package elevenlabs

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techcuan/cuanbot/internal/resilience"
)

func testVoices() []Voice {
	return []Voice{{ID: "voice-a", Label: "a"}, {ID: "voice-b", Label: "b"}}
}

func TestSynthesizeWritesAudioFile(t *testing.T) {
	var gotPath string
	var gotReq ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if key := r.Header.Get("xi-api-key"); key != "xi-test" {
			t.Errorf("api key header = %s", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte("MP3DATA"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "narration.mp3")
	c := New(Config{
		Base:   srv.URL,
		APIKey: "xi-test",
		Retry:  resilience.RetryConfig{Attempts: 1},
		Voices: testVoices(),
		Rand:   rand.New(rand.NewSource(1)),
	})

	voice, err := c.Synthesize(context.Background(), "Halo Gen Z!", out)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/v1/text-to-speech/") {
		t.Errorf("path = %s", gotPath)
	}
	if !strings.HasSuffix(gotPath, voice.ID) {
		t.Errorf("path %s does not end with reported voice %s", gotPath, voice.ID)
	}
	if gotReq.Text != "Halo Gen Z!" {
		t.Errorf("text = %q", gotReq.Text)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "MP3DATA" {
		t.Errorf("file content = %q", data)
	}
}

func TestVoiceSettingsWithinBounds(t *testing.T) {
	var gotReq ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := New(Config{Base: srv.URL, Retry: resilience.RetryConfig{Attempts: 1}, Voices: testVoices()})

	for i := 0; i < 20; i++ {
		out := filepath.Join(t.TempDir(), "n.mp3")
		if _, err := c.Synthesize(context.Background(), "teks", out); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		s := gotReq.VoiceSettings
		if s.Stability < 0.3 || s.Stability > 0.6 {
			t.Fatalf("stability %f out of [0.3,0.6]", s.Stability)
		}
		if s.Style < 0.1 || s.Style > 0.5 {
			t.Fatalf("style %f out of [0.1,0.5]", s.Style)
		}
		if s.SimilarityBoost != 0.7 {
			t.Fatalf("similarity_boost = %f, want 0.7", s.SimilarityBoost)
		}
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := New(Config{
		Base:   srv.URL,
		Retry:  resilience.RetryConfig{Attempts: 3, Wait: time.Millisecond},
		Voices: testVoices(),
	})

	out := filepath.Join(t.TempDir(), "n.mp3")
	if _, err := c.Synthesize(context.Background(), "teks", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{Base: srv.URL, Retry: resilience.RetryConfig{Attempts: 1}, Voices: testVoices()})

	out := filepath.Join(t.TempDir(), "n.mp3")
	if _, err := c.Synthesize(context.Background(), "teks", out); err == nil {
		t.Fatal("expected error for empty audio body")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no file should be written on failure")
	}
}

func TestNewDefaultsRetry(t *testing.T) {
	c := New(Config{})
	if c.retry != resilience.DefaultRetry() {
		t.Errorf("retry = %+v, want DefaultRetry", c.retry)
	}
}
