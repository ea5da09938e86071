package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
)

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard query
// ─────────────────────────────────────────────────────────────────────────────

func TestGetLeaderboardQueryValidate(t *testing.T) {
	q := GetLeaderboardQuery{}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 20, q.Limit)

	q = GetLeaderboardQuery{Limit: 500}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 100, q.Limit)

	q = GetLeaderboardQuery{Limit: 35, Offset: 70}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 35, q.Limit)

	assert.Error(t, (&GetLeaderboardQuery{Limit: -1}).Validate())
	assert.Error(t, (&GetLeaderboardQuery{Offset: -1}).Validate())
}

func TestGetLeaderboardWithoutRankCache(t *testing.T) {
	h := NewGetLeaderboardHandler(nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestLeaderboardPaginate(t *testing.T) {
	h := NewGetLeaderboardHandler(nil)
	entries := []redis.RankedUser{
		{Rank: 1, UserID: "a", Points: 500},
		{Rank: 2, UserID: "b", Points: 400},
		{Rank: 3, UserID: "c", Points: 300},
	}

	page := h.paginate(entries, 1, 2)
	assert.Len(t, page, 2)
	assert.Equal(t, shared.UserID("b"), page[0].UserID)

	// Offset past the end yields an empty page, not a panic.
	assert.Empty(t, h.paginate(entries, 5, 2))

	// Short final page.
	assert.Len(t, h.paginate(entries, 2, 10), 1)
}

func TestLeaderboardBuildResult(t *testing.T) {
	h := NewGetLeaderboardHandler(nil)
	entries := []redis.RankedUser{
		{Rank: 1, UserID: "a", Points: 500},
		{Rank: 2, UserID: "b", Points: 300},
		{Rank: 3, UserID: "c", Points: 100},
	}

	result := h.buildResult(entries, GetLeaderboardQuery{Limit: 3, Cohort: "2026-spring"}, 10)

	assert.Len(t, result.Entries, 3)
	assert.Equal(t, "2026-spring", result.Cohort)
	assert.Equal(t, 300, result.AveragePoints)
	assert.Equal(t, 300, result.MedianPoints)
	assert.Equal(t, 10, result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Equal(t, 1, result.Page)

	// Even-length page uses the mean of the middle pair.
	even := h.buildResult(entries[:2], GetLeaderboardQuery{Limit: 2}, 2)
	assert.Equal(t, 400, even.MedianPoints)
	assert.False(t, even.HasMore)

	// Page number follows the offset.
	paged := h.buildResult(entries, GetLeaderboardQuery{Limit: 3, Offset: 6}, 10)
	assert.Equal(t, 3, paged.Page)

	empty := h.buildResult(nil, GetLeaderboardQuery{Limit: 20}, 0)
	assert.Zero(t, empty.AveragePoints)
	assert.Zero(t, empty.MedianPoints)
	assert.Empty(t, empty.Entries)
}

// ─────────────────────────────────────────────────────────────────────────────
// User progress query
// ─────────────────────────────────────────────────────────────────────────────

func TestGetUserProgressQueryValidate(t *testing.T) {
	q := GetUserProgressQuery{UserID: "user-1"}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 20, q.BadgeLimit)

	q = GetUserProgressQuery{UserID: "user-1", BadgeLimit: 250}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 100, q.BadgeLimit)

	assert.Error(t, (&GetUserProgressQuery{}).Validate())
	assert.Error(t, (&GetUserProgressQuery{UserID: "user-1", BadgeLimit: -1}).Validate())
}

func TestGetUserProgressFromStore(t *testing.T) {
	store := progress.NewMemoryStore()
	store.Seed(shared.UserProgress{
		UserID:      "user-1",
		TotalPoints: 420,
		Cohort:      "2026-spring",
		StreakDays:  3,
		UpdatedAt:   time.Now(),
		Skills: map[shared.SkillID]shared.SkillLevel{
			"python": {Level: 3, ExperiencePoints: 150},
		},
	})
	h := NewGetUserProgressHandler(store, nil, nil)

	result, err := h.Handle(context.Background(), GetUserProgressQuery{UserID: "user-1"})
	assert.NoError(t, err)

	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, 420, result.TotalPoints)
	assert.Equal(t, "2026-spring", result.Cohort)
	assert.Equal(t, 3, result.StreakDays)
	assert.True(t, result.StreakActiveToday)
	assert.Len(t, result.Skills, 1)
	assert.Equal(t, "python", result.Skills[0].SkillID)

	// Optional sections stay empty without their adapters.
	assert.Empty(t, result.Badges)
	assert.Zero(t, result.Rank)
	assert.Zero(t, result.CohortRank)
}

func TestGetUserProgressStaleStreak(t *testing.T) {
	store := progress.NewMemoryStore()
	store.Seed(shared.UserProgress{
		UserID:      "user-2",
		TotalPoints: 50,
		StreakDays:  7,
		UpdatedAt:   time.Now().Add(-48 * time.Hour),
	})
	h := NewGetUserProgressHandler(store, nil, nil)

	result, err := h.Handle(context.Background(), GetUserProgressQuery{UserID: "user-2"})
	assert.NoError(t, err)
	assert.False(t, result.StreakActiveToday)
}

func TestGetUserProgressUnknownUser(t *testing.T) {
	h := NewGetUserProgressHandler(progress.NewMemoryStore(), nil, nil)

	_, err := h.Handle(context.Background(), GetUserProgressQuery{UserID: "nobody"})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
