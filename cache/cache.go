// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cache keeps aggregate poll results between mutations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/pollbase/models"
)

// Cache stores viewer-independent poll results. A miss is nil, nil.
//
// Every Invalidate bumps the poll's generation. SetResults takes the
// generation read before the results were loaded and drops the write when
// an invalidation happened in between.
type Cache interface {
	GetResults(ctx context.Context, pollID string) (*models.PollResults, error)
	Generation(ctx context.Context, pollID string) (int64, error)
	SetResults(ctx context.Context, results *models.PollResults, gen int64) error
	Invalidate(ctx context.Context, pollID string) error
	Ping(ctx context.Context) error
	Close() error
}

// errStale aborts a results write whose generation is out of date
var errStale = errors.New("results generation changed")

// RedisCache implements Cache on Redis with a fixed TTL
type RedisCache struct {
	client    *redis.Client
	prefix    string
	genPrefix string
	ttl       time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{
		client:    client,
		prefix:    "poll_results:",
		genPrefix: "poll_results_gen:",
		ttl:       ttl,
	}
}

func (c *RedisCache) key(pollID string) string {
	return c.prefix + pollID
}

func (c *RedisCache) genKey(pollID string) string {
	return c.genPrefix + pollID
}

func (c *RedisCache) GetResults(ctx context.Context, pollID string) (*models.PollResults, error) {
	data, err := c.client.Get(ctx, c.key(pollID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached results: %w", err)
	}

	var results models.PollResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("unmarshal cached results: %w", err)
	}
	return &results, nil
}

// Generation returns the poll's invalidation counter; 0 when never invalidated
func (c *RedisCache) Generation(ctx context.Context, pollID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(pollID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get results generation: %w", err)
	}
	return gen, nil
}

// SetResults stores results without the viewer's vote, unless the poll was
// invalidated after gen was read. A skipped write is not an error.
func (c *RedisCache) SetResults(ctx context.Context, results *models.PollResults, gen int64) error {
	stored := *results
	stored.UserVote = nil

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	genKey := c.genKey(results.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(results.ID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache results: %w", err)
	}
	return nil
}

// Invalidate drops the cached results and bumps the generation
func (c *RedisCache) Invalidate(ctx context.Context, pollID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(pollID))
		pipe.Del(ctx, c.key(pollID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate results: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Nop is used when no Redis URL is configured
type Nop struct{}

func (Nop) GetResults(context.Context, string) (*models.PollResults, error) { return nil, nil }
func (Nop) Generation(context.Context, string) (int64, error)               { return 0, nil }
func (Nop) SetResults(context.Context, *models.PollResults, int64) error    { return nil }
func (Nop) Invalidate(context.Context, string) error                        { return nil }
func (Nop) Ping(context.Context) error                                      { return nil }
func (Nop) Close() error                                                    { return nil }
