package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/techcuan/cuanbot/internal/log"
)

// RetryConfig controls the fixed-wait retry loop used around external calls.
// Every upstream the bot talks to gets the same treatment: a small number of
// attempts with a constant pause between them.
type RetryConfig struct {
	Attempts int
	Wait     time.Duration
}

// DefaultRetry mirrors the bot's historical behavior of three attempts with a
// short fixed wait.
func DefaultRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Wait: 2 * time.Second}
}

// Retry runs fn until it succeeds, attempts are exhausted, or ctx is done.
// The last error is returned wrapped with the operation name.
func Retry(ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	logger := log.WithComponentFromContext(ctx, "retry")

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.Attempts {
			logger.Warn().
				Err(lastErr).
				Str("op", op).
				Int("attempt", attempt).
				Int("max_attempts", cfg.Attempts).
				Msg("attempt failed, retrying")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(cfg.Wait):
			}
		}
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}
