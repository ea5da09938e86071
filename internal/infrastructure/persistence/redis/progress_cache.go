package redis

import (
	"context"
	"errors"

	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// CachedProgressStore decorates a progress.Store with a Redis
// read-through cache. Reads hit Redis first; updates write through to
// the underlying store and refresh the cached snapshot.
type CachedProgressStore struct {
	store progress.Store
	cache *Cache
}

// NewCachedProgressStore wraps a store with caching.
func NewCachedProgressStore(store progress.Store, cache *Cache) *CachedProgressStore {
	return &CachedProgressStore{store: store, cache: cache}
}

// Get implements progress.Store.
func (s *CachedProgressStore) Get(ctx context.Context, userID shared.UserID) (*shared.UserProgress, error) {
	var cached shared.UserProgress
	err := s.cache.Get(ctx, ProgressKey(userID.String()), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Cache trouble is not fatal; fall through to the store.
		_ = s.cache.Delete(ctx, ProgressKey(userID.String()))
	}

	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, ProgressKey(userID.String()), p, TTLProgressCache)
	return p, nil
}

// Update implements progress.Store. The write goes to the underlying
// store; the cache is refreshed with the returned snapshot so the next
// read sees the new totals.
func (s *CachedProgressStore) Update(ctx context.Context, userID shared.UserID, delta shared.ProgressDelta) (*shared.UserProgress, error) {
	p, err := s.store.Update(ctx, userID, delta)
	if err != nil {
		// Drop the cached snapshot so a stale read cannot mask the failure.
		_ = s.cache.Delete(ctx, ProgressKey(userID.String()))
		return nil, err
	}

	_ = s.cache.Set(ctx, ProgressKey(userID.String()), p, TTLProgressCache)
	return p, nil
}

// Invalidate removes a user's cached snapshot.
func (s *CachedProgressStore) Invalidate(ctx context.Context, userID shared.UserID) error {
	return s.cache.Delete(ctx, ProgressKey(userID.String()))
}
