// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound calls to third-party APIs so a
// misbehaving schedule cannot burn quota or trip upstream abuse detection.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var upstreamWaits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cuanbot",
		Name:      "upstream_throttle_total",
		Help:      "Outbound requests that had to wait for an upstream rate slot",
	},
	[]string{"upstream"},
)

// Config holds per-upstream limits.
type Config struct {
	// Rates maps an upstream name to its sustained requests-per-second limit.
	Rates map[string]rate.Limit
	// Bursts maps an upstream name to its burst allowance.
	Bursts map[string]int

	// DefaultRate applies to upstreams without an explicit entry.
	DefaultRate  rate.Limit
	DefaultBurst int
}

// DefaultConfig returns limits sized for the bot's daily call volume.
func DefaultConfig() Config {
	return Config{
		Rates: map[string]rate.Limit{
			"openai":     1,   // chat completions are slow anyway
			"elevenlabs": 0.5, // TTS quota is the scarcest resource
			"telegram":   5,
			"trends":     2,
		},
		Bursts: map[string]int{
			"openai":     2,
			"elevenlabs": 1,
			"telegram":   10,
			"trends":     4,
		},
		DefaultRate:  2,
		DefaultBurst: 4,
	}
}

// Limiter manages one token bucket per upstream.
type Limiter struct {
	config   Config
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a limiter with the given config.
func New(config Config) *Limiter {
	return &Limiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the upstream has a free slot or ctx is done.
func (l *Limiter) Wait(ctx context.Context, upstream string) error {
	lim := l.get(upstream)
	if !lim.Allow() {
		upstreamWaits.WithLabelValues(upstream).Inc()
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("rate wait for %s: %w", upstream, err)
		}
	}
	return nil
}

// Allow reports whether the upstream has a free slot right now.
func (l *Limiter) Allow(upstream string) bool {
	return l.get(upstream).Allow()
}

func (l *Limiter) get(upstream string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[upstream]; ok {
		return lim
	}

	r, ok := l.config.Rates[upstream]
	if !ok {
		r = l.config.DefaultRate
	}
	b, ok := l.config.Bursts[upstream]
	if !ok {
		b = l.config.DefaultBurst
	}
	lim := rate.NewLimiter(r, b)
	l.limiters[upstream] = lim
	return lim
}
