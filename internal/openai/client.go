// Package openai generates Indonesian captions and hashtags via the chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/ratelimit"
	"github.com/techcuan/cuanbot/internal/resilience"
)

// Persona styles rotated per caption so the output does not sound templated.
var styles = []string{
	"Storytelling seru, seperti cerita temen",
	"Q&A cepat, jawab pertanyaan Gen Z",
	"Tips praktis, langsung bisa dipake",
	"Lucu dan menghibur, bikin ketawa",
	"Misterius, bikin penasaran",
}

// FallbackHashtags is used when hashtag generation fails.
const FallbackHashtags = "#TechCuan #AICuan #TikTokIndonesia #FYPIndonesia #GenZCuan"

// FallbackCaption returns the static caption used when the API is down.
func FallbackCaption(topic string) string {
	return fmt.Sprintf("🔥 %s! Gasskeun di TikTok!", topic)
}

// Config holds client construction options.
type Config struct {
	Base    string
	APIKey  string
	Model   string
	Timeout time.Duration
	Retry   resilience.RetryConfig

	// Optional protection around the upstream.
	Limiter *ratelimit.Limiter
	Breaker *resilience.CircuitBreaker

	// Rand drives style selection; nil uses the global source.
	Rand *rand.Rand
}

// Client calls the chat completions endpoint.
type Client struct {
	base    string
	apiKey  string
	model   string
	http    *http.Client
	retry   resilience.RetryConfig
	limiter *ratelimit.Limiter
	breaker *resilience.CircuitBreaker
	rand    *rand.Rand
}

// New creates a caption client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = resilience.DefaultRetry()
	}
	return &Client{
		base:    strings.TrimRight(cfg.Base, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
		limiter: cfg.Limiter,
		breaker: cfg.Breaker,
		rand:    cfg.Rand,
	}
}

// Caption asks for a short narration plus caption for the topic, in one of
// the rotating persona styles. The returned style is logged for analytics.
func (c *Client) Caption(ctx context.Context, topic string) (string, error) {
	style := styles[c.intn(len(styles))]
	logger := log.WithComponentFromContext(ctx, "openai")
	logger.Info().Str("event", "caption.start").Str("topic", topic).Str("style", style).Msg("generating caption")

	start := time.Now()
	system := fmt.Sprintf("Kamu adalah kreator TikTok Indonesia dengan gaya %s. Gunakan bahasa gaul dan referensi budaya lokal.", style)
	user := fmt.Sprintf("Buatkan narasi TikTok (max 100 kata) dan caption pendek untuk topik: %s. Sertakan humor atau slang Indonesia.", topic)

	text, err := c.complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("caption for %q: %w", topic, err)
	}

	logger.Info().
		Str("event", "caption.done").
		Str("style", style).
		Dur("elapsed", time.Since(start)).
		Msg("caption generated")
	return text, nil
}

// Hashtags asks for 5-7 topical hashtags aimed at the Indonesian audience.
func (c *Client) Hashtags(ctx context.Context, topic string) (string, error) {
	system := "Kamu adalah ahli media sosial TikTok Indonesia."
	user := fmt.Sprintf("Buatkan 5-7 hashtag relevan untuk topik: %s. Fokus pada tren Indonesia dan Gen Z.", topic)

	tags, err := c.complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("hashtags for %q: %w", topic, err)
	}
	return tags, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "openai"); err != nil {
			return "", err
		}
	}

	var out string
	call := func(ctx context.Context) error {
		var err error
		out, err = c.completeOnce(ctx, system, user)
		return err
	}

	run := func(ctx context.Context) error {
		if c.breaker != nil {
			return c.breaker.Execute(func() error { return call(ctx) })
		}
		return call(ctx)
	}

	if err := resilience.Retry(ctx, c.retry, "openai chat completion", run); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) completeOnce(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close() //nolint:errcheck

	var p chatResponse
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		if p.Error != nil {
			return "", fmt.Errorf("openai %d: %s", res.StatusCode, p.Error.Message)
		}
		return "", fmt.Errorf("openai responded %d", res.StatusCode)
	}
	if len(p.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return strings.TrimSpace(p.Choices[0].Message.Content), nil
}

func (c *Client) intn(n int) int {
	if c.rand != nil {
		return c.rand.Intn(n)
	}
	return rand.Intn(n)
}
