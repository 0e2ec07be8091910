package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "devkit"

// Client stores rotation and dedupe state in Redis.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func rotationKey(prefix string) string {
	return fmt.Sprintf("%s:rotation", prefix)
}

func dedupeKey(prefix, keyHash string) string {
	return fmt.Sprintf("%s:dedupe:%s", prefix, keyHash)
}

// LastIndex reads the group's field from the rotation hash.
func (c *Client) LastIndex(ctx context.Context, group string) (int, bool, error) {
	val, err := c.rdb.HGet(ctx, rotationKey(c.prefix), group).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("hget failed: %w", err)
	}
	idx, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid rotation index %q: %w", val, err)
	}
	return idx, true, nil
}

// SetLastIndex writes the group's field in the rotation hash.
func (c *Client) SetLastIndex(ctx context.Context, group string, idx int) error {
	if err := c.rdb.HSet(ctx, rotationKey(c.prefix), group, idx).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// LastSeen reads a dedupe record.
func (c *Client) LastSeen(ctx context.Context, keyHash string) (time.Time, bool, error) {
	val, err := c.rdb.Get(ctx, dedupeKey(c.prefix, keyHash)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get failed: %w", err)
	}
	secs, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid dedupe record %q: %w", val, err)
	}
	return time.Unix(secs, 0), true, nil
}

// SetLastSeen writes a dedupe record without expiry.
func (c *Client) SetLastSeen(ctx context.Context, keyHash string, t time.Time) error {
	key := dedupeKey(c.prefix, keyHash)
	if err := c.rdb.Set(ctx, key, strconv.FormatInt(t.Unix(), 10), 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes a dedupe record.
func (c *Client) Delete(ctx context.Context, keyHash string) error {
	return c.rdb.Del(ctx, dedupeKey(c.prefix, keyHash)).Err()
}

// DeleteAll removes every dedupe record under the prefix.
func (c *Client) DeleteAll(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, dedupeKey(c.prefix, "*"), 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("del failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("del failed: %w", err)
		}
	}
	return nil
}
