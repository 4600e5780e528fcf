// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	nop := zerolog.Nop()
	return mr, &RedisCache{client: client, logger: &nop}
}

func TestRedisCacheSetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()

	c.Set("topics", []string{"tren a", "tren b"}, 5*time.Minute)

	val, found := c.Get("topics")
	if !found {
		t.Fatal("expected to find key")
	}
	// JSON round-trip turns the slice into []any.
	topics, ok := val.([]any)
	if !ok || len(topics) != 2 {
		t.Fatalf("value = %#v, want 2 topics", val)
	}
	if topics[0] != "tren a" {
		t.Errorf("topics[0] = %v, want tren a", topics[0])
	}
}

func TestRedisCacheMiss(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()

	if _, found := c.Get("absent"); found {
		t.Fatal("expected miss")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("misses = %d, want 1", c.Stats().Misses)
	}
}

func TestRedisCacheTTL(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()

	c.Set("short", "v", 50*time.Millisecond)
	mr.FastForward(100 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Fatal("expected key to be expired after TTL")
	}
}

func TestRedisCacheDelete(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()

	c.Set("k", "v", time.Minute)
	c.Delete("k")

	if _, found := c.Get("k"); found {
		t.Fatal("expected key to be deleted")
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	nop := zerolog.Nop()
	if _, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, &nop); err == nil {
		t.Fatal("expected connection error")
	}
}
