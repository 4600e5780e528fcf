package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HourWeight is one entry of the audience activity table: a wall-clock slot
// and its relative pick weight.
type HourWeight struct {
	Hour   int
	Minute int
	Weight float64
}

// Validate checks the effective configuration for obvious misconfiguration.
// It fails fast; a daemon with a broken base URL or an empty data dir cannot
// do anything useful.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data dir is empty")
	}
	if strings.TrimSpace(cfg.AssetsDir) == "" {
		return fmt.Errorf("assets dir is empty")
	}

	for name, base := range map[string]string{
		"openai":     cfg.OpenAIBase,
		"elevenlabs": cfg.ElevenLabsBase,
		"telegram":   cfg.TelegramBase,
		"trends":     cfg.TrendsBase,
		"tokboard":   cfg.TokboardBase,
	} {
		if err := validateBaseURL(name, base); err != nil {
			return err
		}
	}

	if cfg.PublicURL != "" {
		if err := validateBaseURL("public", cfg.PublicURL); err != nil {
			return err
		}
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if _, err := ParseActiveHours(cfg.ActiveHours); err != nil {
		return err
	}

	if cfg.SchedulesPerDay <= 0 {
		return fmt.Errorf("schedules per day must be positive, got %d", cfg.SchedulesPerDay)
	}
	if cfg.VideoQuotaMB <= 0 || cfg.LogQuotaMB <= 0 {
		return fmt.Errorf("storage quotas must be positive (video=%dMB, log=%dMB)", cfg.VideoQuotaMB, cfg.LogQuotaMB)
	}
	if cfg.KeepVideos <= 0 || cfg.KeepLogs <= 0 {
		return fmt.Errorf("keep counts must be positive (videos=%d, logs=%d)", cfg.KeepVideos, cfg.KeepLogs)
	}
	if cfg.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive, got %d", cfg.RetryAttempts)
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", cfg.HTTPTimeout)
	}

	return nil
}

func validateBaseURL(name, base string) error {
	if strings.TrimSpace(base) == "" {
		return fmt.Errorf("%s base URL is empty", name)
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid %s base URL %q: %w", name, base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported %s base URL scheme %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s base URL %q is missing host", name, base)
	}
	return nil
}

// ParseActiveHours parses the audience activity table from its compact
// "HH:MM=weight,HH:MM=weight" form.
func ParseActiveHours(s string) ([]HourWeight, error) {
	parts := strings.Split(s, ",")
	out := make([]HourWeight, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid active hours entry %q (want HH:MM=weight)", part)
		}
		hm := strings.SplitN(kv[0], ":", 2)
		if len(hm) != 2 {
			return nil, fmt.Errorf("invalid active hours time %q", kv[0])
		}
		hour, err := strconv.Atoi(hm[0])
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid active hours hour %q", hm[0])
		}
		minute, err := strconv.Atoi(hm[1])
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid active hours minute %q", hm[1])
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || weight <= 0 {
			return nil, fmt.Errorf("invalid active hours weight %q", kv[1])
		}
		out = append(out, HourWeight{Hour: hour, Minute: minute, Weight: weight})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("active hours table is empty")
	}
	return out, nil
}
