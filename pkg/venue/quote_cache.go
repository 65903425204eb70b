package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QuoteCache keeps recent quote snapshots in redis so repeated pricing of
// the same contract inside the TTL does not re-run the bounded-wait poll
// against the venue. Cache failures are never fatal to the caller.
type QuoteCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewQuoteCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *QuoteCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &QuoteCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *QuoteCache) key(ct Contract) string {
	return fmt.Sprintf("quote:%s", contractKey(ct))
}

// Get returns a cached snapshot when one exists and is fresh.
func (c *QuoteCache) Get(ctx context.Context, ct Contract) (QuoteSnapshot, bool) {
	if c == nil || c.rdb == nil {
		return QuoteSnapshot{}, false
	}
	raw, err := c.rdb.Get(ctx, c.key(ct)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("quote cache read failed", zap.Error(err))
		}
		return QuoteSnapshot{}, false
	}
	var snap QuoteSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("quote cache entry corrupt", zap.Error(err))
		return QuoteSnapshot{}, false
	}
	return snap, true
}

// Put stores a snapshot with the cache TTL. Best effort.
func (c *QuoteCache) Put(ctx context.Context, ct Contract, snap QuoteSnapshot) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(ct), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("quote cache write failed", zap.Error(err))
	}
}
