// Package elevenlabs synthesizes narration audio through the ElevenLabs
// text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/ratelimit"
	"github.com/techcuan/cuanbot/internal/resilience"
)

// Config holds client construction options.
type Config struct {
	Base    string
	APIKey  string
	Timeout time.Duration
	Retry   resilience.RetryConfig

	// Voices overrides the rotation pool (tests); nil uses DefaultVoices.
	Voices []Voice

	Limiter *ratelimit.Limiter
	Breaker *resilience.CircuitBreaker

	// Rand drives voice and voice-setting selection; nil uses the global source.
	Rand *rand.Rand
}

// Client calls the text-to-speech endpoint and writes MP3 files.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	retry   resilience.RetryConfig
	voices  []Voice
	limiter *ratelimit.Limiter
	breaker *resilience.CircuitBreaker
	rand    *rand.Rand
}

// New creates a TTS client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	voices := cfg.Voices
	if len(voices) == 0 {
		voices = DefaultVoices
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = resilience.DefaultRetry()
	}
	return &Client{
		base:    strings.TrimRight(cfg.Base, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
		voices:  voices,
		limiter: cfg.Limiter,
		breaker: cfg.Breaker,
		rand:    cfg.Rand,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize renders text to speech and writes the MP3 atomically to outPath.
// It returns the voice that was used.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) (Voice, error) {
	logger := log.WithComponentFromContext(ctx, "elevenlabs")

	voice := c.voices[c.intn(len(c.voices))]
	settings := voiceSettings{
		Stability:       0.3 + c.float64()*0.3, // 0.3-0.6
		SimilarityBoost: 0.7,
		Style:           0.1 + c.float64()*0.4, // 0.1-0.5
	}

	logger.Info().
		Str("event", "tts.start").
		Str(log.FieldVoice, voice.Label).
		Int("chars", len(text)).
		Msg("synthesizing narration")

	start := time.Now()
	var audio []byte
	call := func(ctx context.Context) error {
		var err error
		audio, err = c.synthesizeOnce(ctx, voice.ID, text, settings)
		return err
	}
	run := func(ctx context.Context) error {
		if c.breaker != nil {
			return c.breaker.Execute(func() error { return call(ctx) })
		}
		return call(ctx)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "elevenlabs"); err != nil {
			return Voice{}, err
		}
	}
	if err := resilience.Retry(ctx, c.retry, "elevenlabs tts", run); err != nil {
		return Voice{}, err
	}

	if err := writeAtomic(outPath, audio); err != nil {
		return Voice{}, fmt.Errorf("write audio: %w", err)
	}

	logger.Info().
		Str("event", "tts.done").
		Str(log.FieldVoice, voice.Label).
		Str(log.FieldPath, outPath).
		Dur("elapsed", time.Since(start)).
		Msg("narration audio written")
	return voice, nil
}

func (c *Client) synthesizeOnce(ctx context.Context, voiceID, text string, settings voiceSettings) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{Text: text, VoiceSettings: settings})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.base + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("elevenlabs responded %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, nil
}

// writeAtomic writes data so a crashed synthesis never leaves a truncated MP3
// for ffmpeg to trip over.
func writeAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pending.Cleanup() //nolint:errcheck

	if _, err := pending.Write(data); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

func (c *Client) intn(n int) int {
	if c.rand != nil {
		return c.rand.Intn(n)
	}
	return rand.Intn(n)
}

func (c *Client) float64() float64 {
	if c.rand != nil {
		return c.rand.Float64()
	}
	return rand.Float64()
}
