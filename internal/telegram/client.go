// Package telegram sends operator notifications through the Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/metrics"
	"github.com/techcuan/cuanbot/internal/resilience"
)

// Notifier is the seam the pipeline uses; satisfied by Client and by test fakes.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Client talks to the Telegram Bot API.
type Client struct {
	base   string
	token  string
	chatID string
	http   *http.Client
	retry  resilience.RetryConfig
}

// New creates a Telegram client. Token and chat ID may be empty; Send then
// becomes a logged no-op so the pipeline works without credentials.
func New(base, token, chatID string, timeout time.Duration, retry resilience.RetryConfig) *Client {
	if retry.Attempts <= 0 {
		retry = resilience.DefaultRetry()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		chatID: chatID,
		http:   &http.Client{Timeout: timeout},
		retry:  retry,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

// Send delivers a text message to the configured chat.
func (c *Client) Send(ctx context.Context, text string) error {
	logger := log.WithComponentFromContext(ctx, "telegram")

	if !c.Enabled() {
		logger.Debug().Str("event", "notify.skipped").Msg("telegram credentials not configured")
		return nil
	}

	err := resilience.Retry(ctx, c.retry, "telegram sendMessage", func(ctx context.Context) error {
		return c.sendOnce(ctx, text)
	})
	if err != nil {
		metrics.IncNotification("failed")
		return err
	}

	metrics.IncNotification("sent")
	logger.Info().Str("event", "notify.sent").Int("chars", len(text)).Msg("telegram notification sent")
	return nil
}

func (c *Client) sendOnce(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.base, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded %d", res.StatusCode)
	}

	var p struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !p.OK {
		return fmt.Errorf("telegram rejected message: %s", p.Description)
	}
	return nil
}
