// Package rediscache provides a Redis-backed tally cache for the decision
// engine read side. Entries are stored as JSON under a per-poll key with a
// short TTL; a cold or unreachable cache degrades to recomputation, never to
// an error surfaced to the caller.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	"quorum/contexts/decision-governance/decision-engine/ports"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tally:"

type TallyCache struct {
	client *redis.Client
	prefix string
}

// NewTallyCache connects to Redis from a URL and verifies the connection.
func NewTallyCache(redisURL string) (*TallyCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &TallyCache{
		client: client,
		prefix: defaultKeyPrefix,
	}, nil
}

// NewTallyCacheWithClient wraps an existing Redis client.
func NewTallyCacheWithClient(client *redis.Client) *TallyCache {
	return &TallyCache{
		client: client,
		prefix: defaultKeyPrefix,
	}
}

func (c *TallyCache) key(pollID string) string {
	return c.prefix + pollID
}

func (c *TallyCache) GetTally(ctx context.Context, pollID string) ([]entities.TargetTally, bool, error) {
	payload, err := c.client.Get(ctx, c.key(pollID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get tally: %w", err)
	}

	var entries []entities.TargetTally
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, false, fmt.Errorf("unmarshal tally: %w", err)
	}
	return entries, true, nil
}

func (c *TallyCache) PutTally(ctx context.Context, pollID string, entries []entities.TargetTally, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal tally: %w", err)
	}
	if err := c.client.Set(ctx, c.key(pollID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("put tally: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *TallyCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *TallyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var _ ports.TallyCache = (*TallyCache)(nil)
