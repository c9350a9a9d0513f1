package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fundmesh/transfer-service/pkg/views"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const accountCacheTTL = 5 * time.Minute

// AccountCache keeps account views in Redis for the read path. Readers
// tolerate the TTL worth of staleness; transfers and deletes invalidate
// eagerly. A nil client disables caching entirely.
type AccountCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewAccountCache(client *redis.Client, logger *zap.Logger) *AccountCache {
	return &AccountCache{client: client, logger: logger}
}

func (c *AccountCache) Get(ctx context.Context, id uuid.UUID) (views.AccountView, bool) {
	if c == nil || c.client == nil {
		return views.AccountView{}, false
	}
	data, err := c.client.Get(ctx, accountCacheKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("account cache read failed", zap.Error(err))
		}
		return views.AccountView{}, false
	}
	var view views.AccountView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		c.logger.Warn("account cache entry corrupt", zap.Error(err))
		return views.AccountView{}, false
	}
	return view, true
}

func (c *AccountCache) Set(ctx context.Context, view views.AccountView) {
	if c == nil || c.client == nil {
		return
	}
	id, err := uuid.Parse(view.ID)
	if err != nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, accountCacheKey(id), data, accountCacheTTL).Err(); err != nil {
		c.logger.Warn("account cache write failed", zap.Error(err))
	}
}

func (c *AccountCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if c == nil || c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, accountCacheKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("account cache invalidation failed", zap.Error(err))
	}
}

func accountCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("account:%s", id)
}
