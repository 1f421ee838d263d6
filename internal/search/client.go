// Package search maintains the Redis mirror behind the admin's reference
// data typeahead. The mirror is rebuilt wholesale from SQLite and never
// written to directly.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entities lists what the mirror indexes, in reindex order.
var Entities = []string{"station", "partner", "elevator", "region", "district", "locality"}

// ValidEntity reports whether the mirror indexes this entity.
func ValidEntity(entity string) bool {
	for _, e := range Entities {
		if e == entity {
			return true
		}
	}
	return false
}

// Hit is one suggestion returned to the admin UI.
type Hit struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

// Client wraps the Redis connection for the search mirror.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis at url and verifies the connection.
func New(ctx context.Context, url string) (*Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether the mirror is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func indexKey(entity string) string {
	return "search:idx:" + entity
}

func docKey(entity, key string) string {
	return fmt.Sprintf("search:%s:%s", entity, key)
}

// member encodes a sorted set entry as lowered-name, key and display joined
// by NUL, so a lexicographic range over the lowered prefix finds it and the
// payload rides along.
func member(name, key, display string) string {
	return strings.ToLower(name) + "\x00" + key + "\x00" + display
}

func parseMember(m string) (Hit, bool) {
	parts := strings.SplitN(m, "\x00", 3)
	if len(parts) != 3 {
		return Hit{}, false
	}
	return Hit{Key: parts[1], Display: parts[2]}, true
}

// lexRange maps a typeahead prefix to ZRANGEBYLEX bounds. An empty prefix
// scans the whole index.
func lexRange(prefix string) (min, max string) {
	low := strings.ToLower(prefix)
	if low == "" {
		return "-", "+"
	}
	return "[" + low, "[" + low + "\xff"
}

// Suggest returns up to limit entries of the entity whose name starts with
// prefix, case-insensitive, in name order.
func (c *Client) Suggest(ctx context.Context, entity, prefix string, limit int) ([]Hit, error) {
	if !ValidEntity(entity) {
		return nil, fmt.Errorf("unknown search entity %q", entity)
	}
	min, max := lexRange(prefix)
	members, err := c.rdb.ZRangeByLex(ctx, indexKey(entity), &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", entity, err)
	}

	hits := make([]Hit, 0, len(members))
	for _, m := range members {
		if h, ok := parseMember(m); ok {
			hits = append(hits, h)
		}
	}
	return hits, nil
}
