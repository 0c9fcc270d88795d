package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/redis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	parentKeyPrefix = "parent:"

	// DefaultParentCacheTTL is used when no TTL is configured
	DefaultParentCacheTTL = 5 * time.Minute
)

// CachedParentRepository wraps ParentRepository with a Redis read-through cache.
// Concurrent misses for the same parent share one database read.
type CachedParentRepository struct {
	repo  ParentRepository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedParentRepository creates a new CachedParentRepository
func NewCachedParentRepository(repo ParentRepository, cache *redis.Client, ttl time.Duration) *CachedParentRepository {
	if ttl <= 0 {
		ttl = DefaultParentCacheTTL
	}
	return &CachedParentRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetByRef retrieves a parent, serving from cache when possible
func (r *CachedParentRepository) GetByRef(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error) {
	key := parentCacheKey(ref)

	var cached domain.Parent
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Get().Warn("parent cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		parent, err := r.repo.GetByRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetJSON(ctx, key, parent, r.ttl); err != nil {
			logger.Get().Warn("parent cache write failed", zap.String("key", key), zap.Error(err))
		}
		return parent, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the pointer
	parent := *v.(*domain.Parent)
	return &parent, nil
}

// Invalidate drops a cached parent
func (r *CachedParentRepository) Invalidate(ctx context.Context, ref domain.ParentRef) error {
	return r.cache.Del(ctx, parentCacheKey(ref))
}

func parentCacheKey(ref domain.ParentRef) string {
	return parentKeyPrefix + ref.String()
}
