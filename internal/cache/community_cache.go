package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
)

// CommunityCache is a read-through cache over the community configuration
// store. It owns its own refresh lifecycle: entries expire after the TTL and
// the next read repopulates from the repository.
type CommunityCache struct {
	repo   repository.CommunityRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCommunityCache constructs the cache.
func NewCommunityCache(repo repository.CommunityRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CommunityCache {
	return &CommunityCache{repo: repo, client: client, ttl: ttl, logger: logger}
}

func cacheKey(communityID string) string {
	return "community:" + communityID
}

// Get returns the community configuration, from cache when fresh.
func (c *CommunityCache) Get(ctx context.Context, communityID string) (*domain.Community, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, cacheKey(communityID)).Bytes()
		if err == nil {
			var community domain.Community
			if err := json.Unmarshal(raw, &community); err == nil {
				return &community, nil
			}
			// Corrupt entry; fall through to the store.
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("community cache read failed", zap.Error(err))
		}
	}

	community, err := c.repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, community)
	return community, nil
}

// Invalidate drops the cached entry after a configuration write.
func (c *CommunityCache) Invalidate(ctx context.Context, communityID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(communityID)).Err(); err != nil {
		c.logger.Warn("community cache invalidate failed", zap.Error(err))
	}
}

func (c *CommunityCache) store(ctx context.Context, community *domain.Community) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(community)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(community.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("community cache write failed", zap.Error(err))
	}
}
