// Package cache holds the redis read-through cache for the strategy tree
// endpoint. Invalidation uses a per-team version counter: every mutation
// bumps the counter, which orphans all cached variants for that team and
// lets them expire by TTL.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stridehq/product-lifecycle-api/internal/logger"
)

type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewTreeCache creates a tree cache backed by the given redis address.
// Returns nil when ttl is zero; callers treat a nil cache as disabled.
func NewTreeCache(addr string, ttl time.Duration, log *logger.Logger) *TreeCache {
	if ttl <= 0 {
		return nil
	}
	return &TreeCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		log:    log,
	}
}

func (c *TreeCache) versionKey(teamID uint64) string {
	return fmt.Sprintf("strategytree:ver:%d", teamID)
}

func (c *TreeCache) entryKey(teamID uint64, version int64, variant string) string {
	return fmt.Sprintf("strategytree:%d:%d:%s", teamID, version, variant)
}

func (c *TreeCache) version(ctx context.Context, teamID uint64) int64 {
	v, err := c.client.Get(ctx, c.versionKey(teamID)).Int64()
	if err != nil && err != redis.Nil {
		c.log.Warn("tree cache version lookup failed", "team_id", teamID, "error", err)
	}
	return v
}

// Get returns the cached payload for the team/variant pair, if present.
// Cache failures degrade to a miss.
func (c *TreeCache) Get(ctx context.Context, teamID uint64, variant string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	key := c.entryKey(teamID, c.version(ctx, teamID), variant)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("tree cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores the payload for the team/variant pair.
func (c *TreeCache) Set(ctx context.Context, teamID uint64, variant string, payload []byte) {
	if c == nil {
		return
	}

	key := c.entryKey(teamID, c.version(ctx, teamID), variant)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("tree cache set failed", "key", key, "error", err)
	}
}

// InvalidateTeam drops every cached tree variant for the team.
func (c *TreeCache) InvalidateTeam(ctx context.Context, teamID uint64) {
	if c == nil {
		return
	}

	if err := c.client.Incr(ctx, c.versionKey(teamID)).Err(); err != nil {
		c.log.Warn("tree cache invalidate failed", "team_id", teamID, "error", err)
	}
}
