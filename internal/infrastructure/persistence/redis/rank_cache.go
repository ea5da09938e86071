package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/codequest-hub/gamification-engine/internal/application/reward"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANK CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankCache implements reward.RankTracker using Redis sorted sets.
//
// Architecture:
//   - Sorted set "rank:{cohort}" stores userID -> total points
//   - String "rank:meta:{cohort}" stores the last-update timestamp
//
// Rank lookups are O(log N); score updates are O(log N).
type RankCache struct {
	cache *Cache
}

// NewRankCache creates a new RankCache.
func NewRankCache(cache *Cache) *RankCache {
	return &RankCache{cache: cache}
}

const keyRankMeta = "rank:meta:"

// RankOf returns the user's 1-based rank within a cohort, highest
// points first. Returns reward.ErrRankUnavailable when the user has no
// recorded score.
func (r *RankCache) RankOf(ctx context.Context, cohort string, userID shared.UserID) (int64, error) {
	key := RankKey(cohort)

	// ZRevRank returns 0-based rank (0 = highest score)
	rank, err := r.cache.Client().ZRevRank(ctx, key, userID.String()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, reward.ErrRankUnavailable
		}
		return 0, fmt.Errorf("failed to look up rank: %w", err)
	}
	return rank + 1, nil
}

// UpdateScore records the user's new point total.
func (r *RankCache) UpdateScore(ctx context.Context, cohort string, userID shared.UserID, totalPoints int) error {
	key := RankKey(cohort)

	pipe := r.cache.Client().Pipeline()
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(totalPoints),
		Member: userID.String(),
	})
	pipe.Expire(ctx, key, TTLRankCache)
	pipe.Set(ctx, keyRankMeta+cohortOrAll(cohort),
		time.Now().UTC().Format(time.RFC3339), TTLRankCache)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update rank score: %w", err)
	}
	return nil
}

// ScoreOf returns the user's recorded point total.
func (r *RankCache) ScoreOf(ctx context.Context, cohort string, userID shared.UserID) (int, error) {
	score, err := r.cache.Client().ZScore(ctx, RankKey(cohort), userID.String()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, reward.ErrRankUnavailable
		}
		return 0, fmt.Errorf("failed to look up score: %w", err)
	}
	return int(score), nil
}

// RankedUser is one entry of a cohort ranking.
type RankedUser struct {
	UserID shared.UserID
	Points int
	Rank   int64
}

// Top returns the cohort's top users, highest points first.
func (r *RankCache) Top(ctx context.Context, cohort string, count int) ([]RankedUser, error) {
	if count <= 0 {
		count = 10
	}

	members, err := r.cache.Client().ZRevRangeWithScores(ctx, RankKey(cohort), 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read top ranks: %w", err)
	}

	ranked := make([]RankedUser, 0, len(members))
	for i, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedUser{
			UserID: shared.UserID(id),
			Points: int(m.Score),
			Rank:   int64(i + 1),
		})
	}
	return ranked, nil
}

// Size returns how many users the cohort ranking holds.
func (r *RankCache) Size(ctx context.Context, cohort string) (int64, error) {
	n, err := r.cache.Client().ZCard(ctx, RankKey(cohort)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read ranking size: %w", err)
	}
	return n, nil
}

// Remove deletes a user from the cohort ranking.
func (r *RankCache) Remove(ctx context.Context, cohort string, userID shared.UserID) error {
	if err := r.cache.Client().ZRem(ctx, RankKey(cohort), userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from ranking: %w", err)
	}
	return nil
}

// Rebuild replaces a cohort ranking with the given scores in one
// transaction.
func (r *RankCache) Rebuild(ctx context.Context, cohort string, scores map[shared.UserID]int) error {
	key := RankKey(cohort)

	pipe := r.cache.Client().TxPipeline()
	pipe.Del(ctx, key)

	if len(scores) > 0 {
		members := make([]goredis.Z, 0, len(scores))
		for id, points := range scores {
			members = append(members, goredis.Z{
				Score:  float64(points),
				Member: id.String(),
			})
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, TTLRankCache)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild ranking: %w", err)
	}
	return nil
}

func cohortOrAll(cohort string) string {
	if cohort == "" {
		return "all"
	}
	return cohort
}
