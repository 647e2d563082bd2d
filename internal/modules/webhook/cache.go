package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/partnerhub/core/internal/models"
	pkgredis "github.com/partnerhub/core/internal/pkg/redis"
)

const (
	activeCachePrefix = "partnerhub:webhook:active:"
	activeCacheGenKey = activeCachePrefix + "gen"
)

// ActiveCache is a read-through Redis cache of the active subscriptions per
// event type. Entries carry signing secrets, so the Redis instance must sit
// inside the same trust boundary as the database.
//
// Keys are scoped by a generation counter. Readers capture the generation
// before querying the database and write under it; InvalidateAll bumps it,
// so a result read before a mutation can never be served after it.
type ActiveCache struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

// NewActiveCache returns nil when rc is nil, which disables caching.
func NewActiveCache(rc *pkgredis.Client, ttl time.Duration) *ActiveCache {
	if rc == nil {
		return nil
	}
	return &ActiveCache{rc: rc, ttl: ttl}
}

func activeCacheKey(gen int64, eventType string) string {
	return fmt.Sprintf("%s%d:%s", activeCachePrefix, gen, eventType)
}

// Generation returns the current cache generation, 0 before the first
// invalidation.
func (c *ActiveCache) Generation(ctx context.Context) (int64, error) {
	raw, ok, err := c.rc.Get(ctx, activeCacheGenKey)
	if err != nil || !ok {
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache generation %q: %w", raw, err)
	}
	return gen, nil
}

// Get returns the subscriptions cached under gen and whether the key was
// present.
func (c *ActiveCache) Get(ctx context.Context, gen int64, eventType string) ([]models.WebhookSubscription, bool, error) {
	raw, ok, err := c.rc.Get(ctx, activeCacheKey(gen, eventType))
	if err != nil || !ok {
		return nil, false, err
	}
	var cached []models.WebhookSubscription
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false, err
	}
	subs := cached[:0]
	for _, sub := range cached {
		if sub.IsActive && sub.Events.Contains(eventType) {
			subs = append(subs, sub)
		}
	}
	return subs, true, nil
}

// Set stores subs under gen. A write for a generation that has since been
// invalidated lands on a key nobody reads and expires with the TTL.
func (c *ActiveCache) Set(ctx context.Context, gen int64, eventType string, subs []models.WebhookSubscription) error {
	if subs == nil {
		subs = []models.WebhookSubscription{}
	}
	data, err := json.Marshal(subs)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, activeCacheKey(gen, eventType), data, c.ttl)
}

// InvalidateAll moves to a new generation and drops the keys of the one it
// replaced.
func (c *ActiveCache) InvalidateAll(ctx context.Context) error {
	gen, err := c.rc.Incr(ctx, activeCacheGenKey)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(eventTypes))
	for _, et := range eventTypes {
		keys = append(keys, activeCacheKey(gen-1, et.Key))
	}
	return c.rc.Del(ctx, keys...)
}
