// Package cache keeps a user's catalog predictions in Redis. A nil client
// disables the cache and every call becomes a miss or a no-op.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
)

const defaultTTL = 10 * time.Minute

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Enabled() bool { return c != nil && c.client != nil }

func buildKey(username string, technique domain.Technique) string {
	return fmt.Sprintf("pred:user:%s:technique:%s", username, technique)
}

// userPattern matches every key of username. Glob metacharacters in the name
// are escaped so one user's pattern never matches another's keys.
func userPattern(username string) string {
	var b strings.Builder
	for _, r := range username {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return "pred:user:" + b.String() + ":technique:*"
}

// Get returns cached predictions, or nil on a miss.
func (c *Cache) Get(ctx context.Context, username string, technique domain.Technique) ([]domain.ScoredBeer, error) {
	if !c.Enabled() {
		return nil, nil
	}
	key := buildKey(username, technique)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheMisses.Inc()
		return nil, fmt.Errorf("failed to get predictions from cache: %w", err)
	}

	var preds []domain.ScoredBeer
	if err := json.Unmarshal(val, &preds); err != nil {
		metrics.CacheMisses.Inc()
		return nil, fmt.Errorf("failed to unmarshal predictions %s: %w", key, err)
	}
	metrics.CacheHits.Inc()
	return preds, nil
}

// Set stores predictions for the configured TTL.
func (c *Cache) Set(ctx context.Context, username string, technique domain.Technique, preds []domain.ScoredBeer) error {
	if !c.Enabled() {
		return nil
	}
	val, err := json.Marshal(preds)
	if err != nil {
		return fmt.Errorf("failed to marshal predictions: %w", err)
	}
	if err := c.client.Set(ctx, buildKey(username, technique), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set predictions in cache: %w", err)
	}
	return nil
}

// ClearUser drops every technique's predictions for username. Called after a
// new model is trained.
func (c *Cache) ClearUser(ctx context.Context, username string) error {
	if !c.Enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, userPattern(username), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
